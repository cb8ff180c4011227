package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const defaultRefreshBatchSize = 50

// MaintenanceSummary reports one bulk refresh run. Individual item failures
// are counted, never propagated.
type MaintenanceSummary struct {
	RunID     string `json:"runId"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// RefreshStale force-refreshes up to limit shows whose cached copy is older
// than maxAge, oldest first. An item counts as failed when the refresh errors
// or when the origin was unreachable and the show was served from stale cache
// (its refresh time did not move).
func (s *Service) RefreshStale(ctx context.Context, maxAge time.Duration, limit int) (*MaintenanceSummary, error) {
	if maxAge <= 0 {
		maxAge = s.maxAge
	}
	if limit <= 0 {
		limit = defaultRefreshBatchSize
	}

	ids, err := s.store.ListStale(ctx, maxAge, limit)
	if err != nil {
		return nil, err
	}

	summary := &MaintenanceSummary{
		RunID:     uuid.NewString(),
		Attempted: len(ids),
	}

	for _, id := range ids {
		details, err := s.GetShow(ctx, id, true)
		if err != nil || needsRefresh(details.LastRefreshedAt, maxAge) {
			summary.Failed++
			s.logger.Warn("stale refresh failed", "runId", summary.RunID, "tmdbId", id, "error", err)
			continue
		}
		summary.Succeeded++
	}

	s.logger.Info("stale refresh finished",
		"runId", summary.RunID,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary, nil
}

// Prune hard-deletes shows not refreshed within maxAge and returns the count
// removed. This is the only path that ever deletes cached shows.
func (s *Service) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	removed, err := s.store.DeleteOlderThan(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("pruned cached shows", "removed", removed, "maxAge", maxAge)
	}
	return removed, nil
}
