package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"showsync/config"
	"showsync/services/catalog"
)

// catalogMaintainer is the slice of the catalog service the scheduler drives.
type catalogMaintainer interface {
	RefreshStale(ctx context.Context, maxAge time.Duration, limit int) (*catalog.MaintenanceSummary, error)
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

var _ catalogMaintainer = (*catalog.Service)(nil)

// Service runs the catalog maintenance jobs on a settings-driven interval.
// Maintenance stays out of the request path; this loop is the scheduled
// invocation side of it.
type Service struct {
	configManager *config.Manager
	catalog       catalogMaintainer
	logger        *slog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Guards against overlapping cycles when a run outlasts the interval.
	cycleMu      sync.Mutex
	cycleRunning bool
}

func NewService(configManager *config.Manager, cat catalogMaintainer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		configManager: configManager,
		catalog:       cat,
		logger:        logger,
	}
}

// Start begins the maintenance background loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("maintenance scheduler started")
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish, bounded
// by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("maintenance scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("maintenance scheduler stopped before cycle finished")
	}

	s.running = false
	return nil
}

func (s *Service) loop() {
	defer s.wg.Done()

	settings, err := s.configManager.Load()
	if err != nil {
		s.logger.Error("failed to load settings, scheduler disabled", "error", err)
		return
	}

	interval := time.Duration(settings.Maintenance.IntervalMinutes) * time.Minute
	if interval < time.Minute {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run one cycle immediately on start.
	s.runCycle()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

func (s *Service) runCycle() {
	s.cycleMu.Lock()
	if s.cycleRunning {
		s.cycleMu.Unlock()
		s.logger.Warn("skipping maintenance cycle, previous still running")
		return
	}
	s.cycleRunning = true
	s.cycleMu.Unlock()

	defer func() {
		s.cycleMu.Lock()
		s.cycleRunning = false
		s.cycleMu.Unlock()
	}()

	// Re-load so settings edits apply without a restart.
	settings, err := s.configManager.Load()
	if err != nil {
		s.logger.Error("failed to load settings for maintenance cycle", "error", err)
		return
	}
	if !settings.Maintenance.Enabled {
		return
	}

	maxAge := time.Duration(settings.Cache.MaxAgeDays) * 24 * time.Hour
	summary, err := s.catalog.RefreshStale(s.ctx, maxAge, settings.Maintenance.RefreshBatchSize)
	if err != nil {
		s.logger.Error("scheduled stale refresh failed", "error", err)
	} else {
		s.logger.Info("scheduled stale refresh done",
			"runId", summary.RunID,
			"attempted", summary.Attempted,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
		)
	}

	pruneAge := time.Duration(settings.Maintenance.PruneMaxAgeDays) * 24 * time.Hour
	if _, err := s.catalog.Prune(s.ctx, pruneAge); err != nil {
		s.logger.Error("scheduled prune failed", "error", err)
	}
}
