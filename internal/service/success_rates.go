package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/cache"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/metrics"
)

const (
	successRateKeyPrefix = "success_rate:"
	unknownRate          = "none"
	prefetchConcurrency  = 8
	lookupTimeout        = 5 * time.Second
)

// SuccessRateCache fronts a metrics.SuccessRates provider with a cache.
// Concurrent lookups of the same agent share one provider call. "Not enough
// history" answers are cached too.
type SuccessRateCache struct {
	provider metrics.SuccessRates
	cache    cache.Cache
	ttl      time.Duration
	group    singleflight.Group
}

// NewSuccessRateCache creates a SuccessRateCache. c may be nil to disable caching.
func NewSuccessRateCache(provider metrics.SuccessRates, c cache.Cache, ttl time.Duration) *SuccessRateCache {
	return &SuccessRateCache{provider: provider, cache: c, ttl: ttl}
}

type rateLookup struct {
	rate float64
	ok   bool
}

// SuccessRate implements metrics.SuccessRates.
func (c *SuccessRateCache) SuccessRate(ctx context.Context, agentID string) (float64, bool, error) {
	key := successRateKeyPrefix + agentID
	if c.cache != nil {
		if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
			if lookup, ok := decodeRate(data); ok {
				return lookup.rate, lookup.ok, nil
			}
		}
	}

	// The flight is shared by every waiter, so it must not die with the
	// request that happened to start it.
	ch := c.group.DoChan(agentID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		rate, ok, err := c.provider.SuccessRate(fctx, agentID)
		if err != nil {
			return nil, err
		}
		lookup := rateLookup{rate: rate, ok: ok}
		if c.cache != nil {
			// A failed write only costs a provider call next time.
			_ = c.cache.Set(fctx, key, encodeRate(lookup), c.ttl)
		}
		return lookup, nil
	})
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("success rate %s: %w", agentID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return 0, false, fmt.Errorf("success rate %s: %w", agentID, res.Err)
		}
		lookup := res.Val.(rateLookup)
		return lookup.rate, lookup.ok, nil
	}
}

// Prefetch looks up every agent concurrently and returns the known rates.
// On error the rates gathered so far are returned with the first failure.
func (c *SuccessRateCache) Prefetch(ctx context.Context, agentIDs []string) (handoff.SuccessRates, error) {
	var (
		mu    sync.Mutex
		rates = make(handoff.SuccessRates, len(agentIDs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, id := range agentIDs {
		g.Go(func() error {
			rate, ok, err := c.SuccessRate(gctx, id)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				rates[id] = rate
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	return rates, err
}

// Invalidate drops the cached rate of agentID.
func (c *SuccessRateCache) Invalidate(ctx context.Context, agentID string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx, successRateKeyPrefix+agentID)
}

func encodeRate(l rateLookup) []byte {
	if !l.ok {
		return []byte(unknownRate)
	}
	return strconv.AppendFloat(nil, l.rate, 'f', -1, 64)
}

func decodeRate(data []byte) (rateLookup, bool) {
	if string(data) == unknownRate {
		return rateLookup{}, true
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return rateLookup{}, false
	}
	return rateLookup{rate: v, ok: true}, true
}
