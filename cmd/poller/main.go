package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/campaign-engine/internal/config"
	"github.com/ignite/campaign-engine/internal/content"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/hooks"
	"github.com/ignite/campaign-engine/internal/mailer"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
	"github.com/ignite/campaign-engine/internal/provider"
	"github.com/ignite/campaign-engine/internal/scheduler"
	"github.com/ignite/campaign-engine/internal/segment"
	"github.com/ignite/campaign-engine/internal/store"
	"github.com/ignite/campaign-engine/internal/template"
	"github.com/ignite/campaign-engine/internal/tracking"
)

func main() {
	log := logger.WithComponent("Poller")

	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Error("config load failed", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	campaignStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("store init failed", "error", err.Error())
		os.Exit(1)
	}

	adapter, err := buildAdapter(ctx, cfg)
	if err != nil {
		log.Error("provider init failed", "error", err.Error())
		os.Exit(1)
	}

	eventLog := events.NewFileLog(cfg.Storage.DataDir)
	resolver := segment.NewResolver(
		segment.NewFileDefinitions(cfg.Storage.DataDir),
		eventLog,
		segment.WithTTL(cfg.Segments.CacheTTL()),
	)

	bus := buildBus(cfg, eventLog, log)

	sched := scheduler.New(scheduler.Deps{
		Store:     campaignStore,
		Provider:  adapter,
		Segments:  resolver,
		Templates: template.NewLibrary(cfg.Storage.DataDir+"/templates", template.NewRenderer()),
		Rewriter:  tracking.NewRewriter(cfg.Tracking.BaseURL),
		Events:    eventLog,
		Bus:       bus,
	}, scheduler.Config{
		From:       cfg.Provider.From,
		BatchSize:  cfg.Delivery.BatchSize,
		BatchDelay: cfg.Delivery.BatchDelay(),
	})

	if cfg.Content.FeedURL != "" {
		createFeedCampaign(ctx, sched, cfg, log)
	}

	poller := scheduler.NewPoller(sched, campaignStore, cfg.Poller.Interval())
	if err := poller.Start(); err != nil {
		log.Error("poller start failed", "error", err.Error())
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	poller.Stop()
}

func buildStore(ctx context.Context, cfg *config.Config) (store.CampaignStore, error) {
	if cfg.Storage.DatabaseURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return store.OpenPostgres(pingCtx, cfg.Storage.DatabaseURL)
	}
	return store.NewFileStore(cfg.Storage.DataDir), nil
}

func buildRegistry(ctx context.Context, cfg *config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry(
		provider.NewSendGrid(cfg.Provider.SendGridAPIKey),
		provider.NewResend(cfg.Provider.ResendAPIKey),
	)
	if cfg.Provider.SES.AccessKey != "" {
		ses, err := provider.NewSES(ctx, cfg.Provider.SES)
		if err != nil {
			return nil, err
		}
		registry.Register(ses)
	}
	return registry, nil
}

// buildAdapter selects the configured provider and, when an SMTP relay
// is configured, wraps it in the dispatcher so sends get sanitization,
// per-provider retries, and the SMTP fallback.
func buildAdapter(ctx context.Context, cfg *config.Config) (provider.Adapter, error) {
	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	adapter, err := registry.Select(cfg.Provider.Name)
	if err != nil {
		return nil, err
	}
	if cfg.Provider.SMTPURL != "" {
		return mailer.NewDispatcher(
			[]provider.Adapter{adapter},
			mailer.WithSMTPFallback(cfg.Provider.SMTPURL),
		), nil
	}
	return adapter, nil
}

// createFeedCampaign runs the configured feed-to-digest campaign once
// at startup. Failures are logged, not fatal: the poll loop must come
// up even when the feed is down.
func createFeedCampaign(ctx context.Context, sched *scheduler.Scheduler, cfg *config.Config, log *logger.Logger) {
	c, err := sched.CreateFeedCampaign(ctx, content.NewRSSSource(), scheduler.FeedCampaign{
		Shop:     cfg.Content.Shop,
		Segment:  cfg.Content.Segment,
		Subject:  cfg.Content.Subject,
		FeedURL:  cfg.Content.FeedURL,
		MaxItems: cfg.Content.MaxItems,
	})
	if err != nil {
		log.Error("feed campaign creation failed",
			"feed", cfg.Content.FeedURL, "error", err.Error())
		return
	}
	log.Info("feed campaign created",
		"shop", c.Shop, "campaign", c.ID, "recipients", len(c.Recipients))
}

func buildBus(cfg *config.Config, eventLog *events.FileLog, log *logger.Logger) *hooks.Bus {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		log.Info("analytics sink", "backend", "redis", "addr", cfg.Redis.Addr)
		return hooks.NewBusWithAnalytics(hooks.NewRedisSink(client))
	}
	log.Info("analytics sink", "backend", "event-log")
	return hooks.NewBusWithAnalytics(hooks.NewLogSink(eventLog))
}
