package catalog

import (
	"context"

	"showsync/models"
)

const defaultPopulateTopN = 10

// populateInBackground seeds the store with the top listing results without
// delaying the caller. The task is detached from the request context: the
// caller never waits on it, never cancels it, and never sees its outcome.
func (s *Service) populateInBackground(items []models.ShowSummary) {
	if len(items) == 0 {
		return
	}

	n := s.populateTopN
	if len(items) < n {
		n = len(items)
	}
	top := make([]models.ShowSummary, n)
	copy(top, items[:n])

	s.populateWG.Add(1)
	go func() {
		defer s.populateWG.Done()
		s.populate(context.Background(), top)
	}()
}

// populate upserts each summary individually; one bad item must not abort
// persistence of the rest. Failures are logged, never surfaced.
func (s *Service) populate(ctx context.Context, items []models.ShowSummary) {
	var stored, failed int
	for _, item := range items {
		if item.TMDBID <= 0 {
			continue
		}
		if _, err := s.store.UpsertSummary(ctx, item); err != nil {
			failed++
			s.logger.Warn("background populate failed for show", "tmdbId", item.TMDBID, "error", err)
			continue
		}
		stored++
	}
	s.logger.Info("background populate finished", "stored", stored, "failed", failed)
}
