package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/campaign-engine/internal/config"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/hooks"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
	"github.com/ignite/campaign-engine/internal/tracking"
)

func main() {
	log := logger.WithComponent("Tracking")

	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Error("config load failed", "error", err.Error())
		os.Exit(1)
	}

	eventLog := events.NewFileLog(cfg.Storage.DataDir)

	var bus *hooks.Bus
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		bus = hooks.NewBusWithAnalytics(hooks.NewRedisSink(client))
		log.Info("analytics sink", "backend", "redis", "addr", cfg.Redis.Addr)
	} else {
		bus = hooks.NewBusWithAnalytics(hooks.NewLogSink(eventLog))
		log.Info("analytics sink", "backend", "event-log")
	}

	handler := tracking.NewHandler(bus, eventLog)

	srv := &http.Server{
		Addr:         cfg.Tracking.ListenAddr,
		Handler:      handler.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.Tracking.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
