package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/amqp"
	hnats "github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/nats"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/natskv"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/redis"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/ristretto"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/tiered"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/config"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/cache"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/workflow"
)

// buildCache assembles the in-process L1 and the configured shared L2.
func buildCache(ctx context.Context, cfg *config.Config, queue *hnats.Queue) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB<<20, cfg.Cache.L1TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("l1: %w", err)
	}

	switch cfg.Cache.L2Backend {
	case config.L2NATSKV:
		if queue == nil {
			l1.Close()
			return nil, nil, errors.New("natskv cache requires a nats connection")
		}
		kv, err := natskv.Open(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			l1.Close()
			return nil, nil, fmt.Errorf("l2 natskv: %w", err)
		}
		slog.Info("cache ready", "l1_mb", cfg.Cache.L1MaxSizeMB, "l2", "natskv", "bucket", cfg.Cache.L2Bucket)
		return tiered.New(l1, kv, cfg.Cache.L1TTL), l1.Close, nil

	case config.L2Redis:
		rc, err := redis.Connect(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			l1.Close()
			return nil, nil, fmt.Errorf("l2 redis: %w", err)
		}
		slog.Info("cache ready", "l1_mb", cfg.Cache.L1MaxSizeMB, "l2", "redis", "addr", cfg.Redis.Addr)
		return tiered.New(l1, rc, cfg.Cache.L1TTL), func() {
			_ = rc.Close()
			l1.Close()
		}, nil

	default:
		slog.Info("cache ready", "l1_mb", cfg.Cache.L1MaxSizeMB, "l2", "none")
		return l1, l1.Close, nil
	}
}

// buildTrigger returns the configured workflow trigger. The none backend
// yields a nil trigger and executions are recorded only.
func buildTrigger(cfg *config.Config, queue *hnats.Queue) (workflow.Trigger, func(), error) {
	switch cfg.Handoff.TriggerBackend {
	case config.TriggerNATS:
		if queue == nil {
			return nil, nil, errors.New("nats trigger requires a nats connection")
		}
		slog.Info("workflow trigger ready", "backend", "nats")
		return hnats.NewWorkflowTrigger(queue), func() {}, nil

	case config.TriggerAMQP:
		t, err := amqp.Dial(amqp.Config{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("workflow trigger ready", "backend", "amqp", "exchange", cfg.AMQP.Exchange)
		return t, func() { _ = t.Close() }, nil

	default:
		slog.Warn("no workflow trigger configured; executions are recorded only")
		return nil, func() {}, nil
	}
}
