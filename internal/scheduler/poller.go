package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
	"github.com/ignite/campaign-engine/internal/store"
)

// DefaultPollInterval is how often the poller sweeps for due campaigns.
const DefaultPollInterval = 30 * time.Second

// Poller periodically delivers every campaign whose send time has
// arrived. Shops are processed sequentially; one shop's slow provider
// delays the rest of the pass but never another pass.
type Poller struct {
	scheduler *Scheduler
	store     store.CampaignStore
	interval  time.Duration
	log       *logger.Logger

	processed int64
	failures  int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPoller(s *Scheduler, cs store.CampaignStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		scheduler: s,
		store:     cs,
		interval:  interval,
		log:       logger.WithComponent("Poller"),
	}
}

// SendDueCampaigns sweeps every shop once. Individual campaign
// failures are collected and reported in one aggregate error after the
// full pass; store-level failures abort the pass immediately.
func (p *Poller) SendDueCampaigns(ctx context.Context) error {
	shops, err := p.store.ListShops(ctx)
	if err != nil {
		return err
	}

	var failed []string
	for _, shop := range shops {
		shop, err := domain.ValidateShopName(shop)
		if err != nil {
			return err
		}

		campaigns, err := p.store.ReadCampaigns(ctx, shop)
		if err != nil {
			return err
		}

		changed := false
		now := p.scheduler.deps.Clock.Now()
		for i := range campaigns {
			c := &campaigns[i]
			if !c.Due(now) {
				continue
			}
			if err := p.scheduler.DeliverCampaign(ctx, shop, c); err != nil {
				atomic.AddInt64(&p.failures, 1)
				p.log.Error("due campaign delivery failed",
					"shop", shop, "campaign", c.ID, "error", err.Error())
				failed = append(failed, c.ID)
				continue
			}
			atomic.AddInt64(&p.processed, 1)
			changed = true
		}

		// Persistence is at list granularity, only when something
		// changed during this pass.
		if changed {
			if err := p.store.WriteCampaigns(ctx, shop, campaigns); err != nil {
				return err
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("Failed campaigns: %s", strings.Join(failed, ", "))
	}
	return nil
}

// Start begins the polling loop.
func (p *Poller) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	p.log.Info("starting", "interval", p.interval.String())

	p.wg.Add(1)
	go p.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	p.log.Info("stopping")
	cancel()
	p.wg.Wait()
	p.log.Info("stopped",
		"processed", atomic.LoadInt64(&p.processed),
		"failures", atomic.LoadInt64(&p.failures))
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.SendDueCampaigns(ctx); err != nil && ctx.Err() == nil {
				p.log.Error("poll pass failed", "error", err.Error())
			}
		}
	}
}

// Stats reports lifetime counters for operator visibility.
func (p *Poller) Stats() (processed, failures int64) {
	return atomic.LoadInt64(&p.processed), atomic.LoadInt64(&p.failures)
}
