package settings

import (
	"context"
	"sync/atomic"

	"islandbridge/internal/config"
	logx "islandbridge/pkg/logx"
)

// Cache holds the latest resolved settings snapshot and exposes it
// synchronously to the pipeline. Updates swap the whole snapshot, so readers
// see either the old or the new config, never a mix.
type Cache struct {
	snap atomic.Pointer[Snapshot]
	log  logx.Logger
}

func NewCache(cfg *config.Config, log logx.Logger) *Cache {
	c := &Cache{log: log}
	c.Apply(cfg)
	return c
}

// Current never returns nil; before the first Apply it serves defaults.
func (c *Cache) Current() *Snapshot {
	if s := c.snap.Load(); s != nil {
		return s
	}
	return newSnapshot(nil)
}

func (c *Cache) Apply(cfg *config.Config) {
	c.snap.Store(newSnapshot(cfg))
	if !c.log.IsZero() {
		c.log.Debug("settings snapshot applied")
	}
}

// Run consumes committed configs for the lifetime of the service. The
// subscription channel already delivers the current value on subscribe, so a
// (re)started Run applies the latest config immediately.
func (c *Cache) Run(ctx context.Context, updates <-chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			c.Apply(cfg)
		}
	}
}
