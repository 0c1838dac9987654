// Package janitor runs the periodic sweeps: expired-island cancellation,
// audit-log pruning, and limiter-state compaction.
package janitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"islandbridge/internal/config"
	"islandbridge/internal/pipeline"
	"islandbridge/internal/storage"
	logx "islandbridge/pkg/logx"
)

const (
	defaultSchedule       = "@every 30s"
	defaultAuditRetention = 168 * time.Hour
)

// Service owns the cron runner. Safe for concurrent Start/Stop/Apply.
type Service struct {
	mu sync.Mutex

	log   logx.Logger
	pipe  *pipeline.Service
	store storage.Store

	cfg config.JanitorConfig
	c   *cron.Cron
}

func New(cfg config.JanitorConfig, pipe *pipeline.Service, store storage.Store, log logx.Logger) *Service {
	return &Service{log: log, pipe: pipe, store: store, cfg: cfg}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Service) startLocked(ctx context.Context) error {
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}

	spec := strings.TrimSpace(s.cfg.Schedule)
	if spec == "" {
		spec = defaultSchedule
	}
	retention, err := config.ParseDurationOrDefault("janitor.audit_retention", s.cfg.AuditRetention, defaultAuditRetention)
	if err != nil {
		retention = defaultAuditRetention
	}

	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))

	if _, err := c.AddFunc(spec, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	if s.store != nil {
		if _, err := c.AddFunc("@daily", func() { s.pruneAudit(ctx, retention) }); err != nil {
			return err
		}
	}

	c.Start()
	s.c = c
	s.log.Info("janitor started", logx.String("schedule", spec), logx.Duration("audit_retention", retention))
	return nil
}

// Stop halts the cron runner and waits for running sweeps until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// Apply restarts the runner with the new config. Used on config hot reload.
func (s *Service) Apply(ctx context.Context, cfg config.JanitorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == s.cfg && s.c != nil {
		return nil
	}
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
	s.cfg = cfg
	return s.startLocked(ctx)
}

func (s *Service) sweep(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	default:
	}
	expired := s.pipe.SweepExpired(time.Now())
	pruned := s.pipe.PruneLimiters()
	if expired > 0 || pruned > 0 {
		s.log.Debug("janitor sweep", logx.Int("expired", expired), logx.Int("limiters_pruned", pruned))
	}
}

func (s *Service) pruneAudit(ctx context.Context, retention time.Duration) {
	cctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	before := time.Now().Add(-retention)
	if err := s.store.PruneAudit(cctx, before); err != nil {
		s.log.Warn("audit prune failed", logx.Err(err))
		return
	}
	s.log.Debug("audit pruned", logx.Time("before", before))
}
