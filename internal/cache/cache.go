// Package cache keeps a periodically refreshed summary of the store for the
// overview page.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/model"
)

// Source is the part of the store the cache reads from.
type Source interface {
	Stats() (model.StoreStats, error)
	ListDeployments() ([]model.DeploymentSummary, error)
}

// Snapshot is a point-in-time copy of the store summary.
type Snapshot struct {
	Stats       model.StoreStats
	Deployments []model.DeploymentSummary
	RefreshedAt time.Time
}

// Cache holds the latest Snapshot. Reads older than maxAge trigger a
// synchronous refresh.
type Cache struct {
	mu     sync.RWMutex
	src    Source
	maxAge time.Duration
	snap   Snapshot
	now    func() time.Time
}

// New creates an empty cache. The first Snapshot call loads it.
func New(src Source, maxAge time.Duration) *Cache {
	return &Cache{src: src, maxAge: maxAge, now: time.Now}
}

// Refresh reloads the summary from the source. On error the previous
// snapshot is kept.
func (c *Cache) Refresh() error {
	stats, err := c.src.Stats()
	if err != nil {
		return fmt.Errorf("reading store stats: %w", err)
	}
	deployments, err := c.src.ListDeployments()
	if err != nil {
		return fmt.Errorf("listing deployments: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{Stats: stats, Deployments: deployments, RefreshedAt: c.now()}
	return nil
}

// Snapshot returns a copy of the cached summary, refreshing it first when it
// is missing or older than maxAge.
func (c *Cache) Snapshot() (Snapshot, error) {
	c.mu.RLock()
	stale := c.snap.RefreshedAt.IsZero() || c.now().Sub(c.snap.RefreshedAt) > c.maxAge
	c.mu.RUnlock()

	if stale {
		if err := c.Refresh(); err != nil {
			return Snapshot{}, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := c.snap
	snap.Deployments = make([]model.DeploymentSummary, len(c.snap.Deployments))
	copy(snap.Deployments, c.snap.Deployments)
	return snap, nil
}

// Run refreshes the cache immediately and then every interval. It blocks
// until the context is cancelled.
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	slog.Info("overview cache started", "interval", interval)

	if err := c.Refresh(); err != nil {
		slog.Error("overview refresh failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("overview cache stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := c.Refresh(); err != nil {
				slog.Error("overview refresh failed", "error", err)
			}
		}
	}
}
