// Package scheduler owns campaign delivery: creation, per-recipient
// batched sends through the provider layer, and the poller that sweeps
// due campaigns across shops.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/hooks"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
	"github.com/ignite/campaign-engine/internal/provider"
	"github.com/ignite/campaign-engine/internal/store"
	"github.com/ignite/campaign-engine/internal/tracking"
)

// ErrMissingFields rejects campaign input lacking a shop, subject,
// body, or any deliverable recipient.
var ErrMissingFields = errors.New("Missing fields")

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SegmentResolver turns a segment id into a recipient list.
type SegmentResolver interface {
	Resolve(ctx context.Context, shop, segmentID string) ([]string, error)
}

// TemplateRenderer renders a stored template against campaign data.
type TemplateRenderer interface {
	RenderTemplate(ctx context.Context, templateID string, data map[string]interface{}) (string, error)
}

const (
	// DefaultBatchSize caps recipients per provider burst.
	DefaultBatchSize = 100
	// DefaultBatchDelay is the pause between bursts, the sole
	// backpressure against provider rate limits.
	DefaultBatchDelay = 1000 * time.Millisecond
)

// Deps are the scheduler's collaborators. Store, Provider, Rewriter,
// Events, and Bus are required; Segments and Templates may be nil when
// the deployment uses neither segments nor stored templates.
type Deps struct {
	Store     store.CampaignStore
	Provider  provider.Adapter
	Segments  SegmentResolver
	Templates TemplateRenderer
	Rewriter  *tracking.Rewriter
	Events    events.Reader
	Bus       *hooks.Bus
	Clock     Clock
}

// Config carries the tunables.
type Config struct {
	From       string
	BatchSize  int
	BatchDelay time.Duration
}

// Scheduler delivers campaigns. Recipients within a campaign are sent
// sequentially so provider-side ordering effects stay predictable.
type Scheduler struct {
	deps  Deps
	from  string
	batch int
	delay time.Duration
	log   *logger.Logger
}

func New(deps Deps, cfg Config) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	delay := cfg.BatchDelay
	if delay < 0 {
		delay = DefaultBatchDelay
	}
	return &Scheduler{
		deps:  deps,
		from:  cfg.From,
		batch: batch,
		delay: delay,
		log:   logger.WithComponent("Scheduler"),
	}
}

// CampaignInput is the creation request. A zero SendAt means send now.
type CampaignInput struct {
	Shop       string
	Recipients []string
	Subject    string
	Body       string
	Segment    string
	SendAt     time.Time
	TemplateID string
}

// CreateCampaign validates input, resolves the segment when one is
// named, and either delivers immediately (sendAt absent or past) or
// persists the campaign for the poller. Nothing is persisted when
// validation or an immediate delivery fails.
func (s *Scheduler) CreateCampaign(ctx context.Context, input CampaignInput) (*domain.Campaign, error) {
	shop, err := domain.ValidateShopName(input.Shop)
	if err != nil {
		return nil, err
	}

	recipients := input.Recipients
	if input.Segment != "" && s.deps.Segments != nil {
		resolved, err := s.deps.Segments.Resolve(ctx, shop, input.Segment)
		if err != nil {
			return nil, err
		}
		recipients = resolved
	}

	if input.Subject == "" || input.Body == "" || len(recipients) == 0 {
		return nil, ErrMissingFields
	}

	now := s.deps.Clock.Now()
	campaign := &domain.Campaign{
		ID:         domain.NewCampaignID(now),
		Shop:       shop,
		Recipients: recipients,
		Subject:    input.Subject,
		Body:       input.Body,
		Segment:    input.Segment,
		SendAt:     input.SendAt,
		TemplateID: input.TemplateID,
	}
	if campaign.SendAt.IsZero() {
		campaign.SendAt = now
	}

	if !campaign.SendAt.After(now) {
		if err := s.DeliverCampaign(ctx, shop, campaign); err != nil {
			return nil, err
		}
	}

	existing, err := s.deps.Store.ReadCampaigns(ctx, shop)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Store.WriteCampaigns(ctx, shop, append(existing, *campaign)); err != nil {
		return nil, err
	}

	s.log.Info("campaign created",
		"shop", shop, "campaign", campaign.ID, "recipients", len(recipients))
	return campaign, nil
}

// DeliverCampaign sends the campaign to every eligible recipient and
// stamps SentAt on full success. Render and provider errors propagate
// immediately; a partial failure leaves SentAt unset, so the next
// delivery attempt resends the whole campaign.
func (s *Scheduler) DeliverCampaign(ctx context.Context, shop string, campaign *domain.Campaign) error {
	shop, err := domain.ValidateShopName(shop)
	if err != nil {
		return err
	}

	body := campaign.Body
	if campaign.TemplateID != "" && s.deps.Templates != nil {
		body, err = s.deps.Templates.RenderTemplate(ctx, campaign.TemplateID, map[string]interface{}{
			"subject": campaign.Subject,
			"body":    campaign.Body,
		})
		if err != nil {
			return err
		}
	}

	// The tracked body is shared across recipients; apply exactly once.
	base := s.deps.Rewriter.TrackedBody(shop, campaign.ID, body, s.deps.Clock.Now())
	hasPlaceholder := tracking.HasUnsubscribePlaceholder(base)

	// Segment membership is recomputed on every delivery attempt.
	if campaign.Segment != "" && s.deps.Segments != nil {
		resolved, err := s.deps.Segments.Resolve(ctx, shop, campaign.Segment)
		if err != nil {
			return err
		}
		campaign.Recipients = resolved
	}

	recipients := s.filterUnsubscribed(ctx, shop, campaign.Recipients)

	for start := 0; start < len(recipients); start += s.batch {
		if start > 0 && s.delay > 0 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				return err
			}
		}
		end := start + s.batch
		if end > len(recipients) {
			end = len(recipients)
		}
		for _, to := range recipients[start:end] {
			unsubURL := s.deps.Rewriter.UnsubscribeURL(shop, campaign.ID, to)
			html := tracking.WithUnsubscribe(base, unsubURL, hasPlaceholder)

			err := s.deps.Provider.Send(ctx, &provider.Message{
				To:      to,
				From:    s.from,
				Subject: campaign.Subject,
				HTML:    html,
			})
			if err != nil {
				s.log.Error("campaign send failed",
					"shop", shop,
					"campaign", campaign.ID,
					"recipient", logger.RedactEmail(to),
					"error", err.Error())
				return err
			}
			if err := s.deps.Bus.EmitSend(ctx, shop, hooks.Payload{Campaign: campaign.ID}); err != nil {
				return err
			}
		}
	}

	campaign.MarkSent(s.deps.Clock.Now())
	s.log.Info("campaign delivered",
		"shop", shop, "campaign", campaign.ID, "recipients", len(recipients))
	return nil
}

// filterUnsubscribed drops addresses with an unsubscribe event on
// record. A failed event-log read degrades to "no unsubscribes known"
// rather than failing the send.
func (s *Scheduler) filterUnsubscribed(ctx context.Context, shop string, recipients []string) []string {
	evts, err := s.deps.Events.ListEvents(ctx, shop)
	if err != nil {
		s.log.Warn("unsubscribe scan failed, delivering unfiltered",
			"shop", shop, "error", err.Error())
		return recipients
	}

	suppressed := make(map[string]bool)
	for _, e := range evts {
		if e.Type() != domain.EventUnsubscribe {
			continue
		}
		if email, ok := e.Email(); ok {
			suppressed[email] = true
		}
	}
	if len(suppressed) == 0 {
		return recipients
	}

	kept := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if !suppressed[r] {
			kept = append(kept, r)
		}
	}
	return kept
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
