package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc"

	"showsync/models"
)

const listingPageSize = 20

var (
	// ErrNotFound means the show has never been cached and the origin could
	// not supply it (or reports it does not exist).
	ErrNotFound = errors.New("show not found")

	ErrShowIDRequired = errors.New("show id is required")
	ErrQueryRequired  = errors.New("search query is required")
)

// originAPI is the slice of the origin client the coordinator needs;
// constructor-injected so tests can substitute a fake.
type originAPI interface {
	FetchShow(ctx context.Context, tmdbID int64) (*models.Show, []models.Season, error)
	FetchCredits(ctx context.Context, tmdbID int64) ([]models.CastMember, error)
	FetchVideos(ctx context.Context, tmdbID int64) ([]models.Video, error)
	Search(ctx context.Context, query string, page int) (*models.SummaryPage, error)
	Popular(ctx context.Context, page int) (*models.SummaryPage, error)
	Trending(ctx context.Context) (*models.SummaryPage, error)
}

var _ originAPI = (*OriginClient)(nil)

// Service is the read-through coordinator between the local store and the
// origin catalog. It owns the staleness decision, the refresh flow, and all
// fallback behavior; the store and origin client know nothing about each
// other.
type Service struct {
	store  *Store
	origin originAPI
	logger *slog.Logger

	maxAge       time.Duration
	populateTopN int

	// Concurrent refreshes for the same show are coalesced so one origin
	// call serves every waiter; unrelated ids never contend.
	inflightMu sync.Mutex
	inflight   map[int64]*inflightRefresh

	// Detached populate goroutines, trackable so tests can drain them.
	populateWG sync.WaitGroup
}

type inflightRefresh struct {
	wg      sync.WaitGroup
	details *models.ShowDetails
	err     error
}

func NewService(store *Store, origin originAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:        store,
		origin:       origin,
		logger:       logger,
		maxAge:       DefaultMaxAge,
		populateTopN: defaultPopulateTopN,
		inflight:     make(map[int64]*inflightRefresh),
	}
}

// SetMaxAge overrides the staleness window for interactive reads.
func (s *Service) SetMaxAge(maxAge time.Duration) {
	if maxAge > 0 {
		s.maxAge = maxAge
	}
}

// SetPopulateTopN bounds how many listing results the background populator
// persists per listing response.
func (s *Service) SetPopulateTopN(n int) {
	if n > 0 {
		s.populateTopN = n
	}
}

// GetShow returns the assembled show for one origin id, refreshing from the
// origin when the cached copy is missing, stale, or forceRefresh is set.
//
// When the origin is unreachable a previously cached show is returned as-is:
// staleness is preferable to unavailability. Only a show that has never been
// cached surfaces an error.
func (s *Service) GetShow(ctx context.Context, tmdbID int64, forceRefresh bool) (*models.ShowDetails, error) {
	if tmdbID <= 0 {
		return nil, ErrShowIDRequired
	}

	if !forceRefresh {
		cached, err := s.store.ReadShow(ctx, tmdbID)
		if err != nil {
			return nil, err
		}
		if cached != nil && !needsRefresh(cached.LastRefreshedAt, s.maxAge) {
			return s.assemble(ctx, cached)
		}
	}

	return s.refresh(ctx, tmdbID)
}

// refresh coalesces concurrent refreshes for the same id: the first caller
// performs the origin round trip, later callers wait on its result. The entry
// is cleared on completion so a later staleness hit refreshes again.
func (s *Service) refresh(ctx context.Context, tmdbID int64) (*models.ShowDetails, error) {
	s.inflightMu.Lock()
	if in, exists := s.inflight[tmdbID]; exists {
		s.inflightMu.Unlock()
		s.logger.Debug("waiting for inflight refresh", "tmdbId", tmdbID)
		in.wg.Wait()
		return in.details, in.err
	}

	in := &inflightRefresh{}
	in.wg.Add(1)
	s.inflight[tmdbID] = in
	s.inflightMu.Unlock()

	details, err := s.refreshActual(ctx, tmdbID)
	in.details = details
	in.err = err
	in.wg.Done()

	s.inflightMu.Lock()
	delete(s.inflight, tmdbID)
	s.inflightMu.Unlock()

	return details, err
}

func (s *Service) refreshActual(ctx context.Context, tmdbID int64) (*models.ShowDetails, error) {
	// One bounded retry, no backoff. Origin calls are already wrapped by a
	// resilience layer upstream; this only papers over a dropped connection.
	var (
		fetched *models.Show
		seasons []models.Season
	)
	err := retry.Do(
		func() error {
			var ferr error
			fetched, seasons, ferr = s.origin.FetchShow(ctx, tmdbID)
			return ferr
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, ErrOriginNotFound) }),
	)
	if err != nil {
		// Degraded mode: serve the last known cached value if any.
		cached, readErr := s.store.ReadShow(ctx, tmdbID)
		if readErr == nil && cached != nil {
			s.logger.Warn("origin fetch failed, serving cached show",
				"tmdbId", tmdbID,
				"lastRefreshedAt", cached.LastRefreshedAt,
				"error", err,
			)
			return s.assemble(ctx, cached)
		}
		if errors.Is(err, ErrOriginNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch show %d: %w", tmdbID, err)
	}

	// Cast and videos are independent origin calls; fan out and settle each
	// individually so one failure never aborts the other or the show write.
	var (
		cast      []models.CastMember
		castErr   error
		videos    []models.Video
		videosErr error
	)
	var wg conc.WaitGroup
	wg.Go(func() {
		cast, castErr = s.origin.FetchCredits(ctx, tmdbID)
	})
	wg.Go(func() {
		videos, videosErr = s.origin.FetchVideos(ctx, tmdbID)
	})
	wg.Wait()

	// The show row must land before any child write: child rows reference the
	// internal id, and metadata without a durable row is not useful. A failure
	// here fails the whole call.
	fetched.LastRefreshedAt = time.Now().UTC()
	showID, err := s.store.UpsertShow(ctx, fetched)
	if err != nil {
		return nil, err
	}

	// Child collections are replaced wholesale per kind. A failed fetch or
	// write leaves that kind's previously cached rows in place rather than
	// regressing to empty.
	if err := s.store.ReplaceSeasons(ctx, showID, seasons); err != nil {
		s.logger.Warn("season write failed, keeping previous seasons", "tmdbId", tmdbID, "error", err)
	}
	if castErr != nil {
		s.logger.Warn("cast fetch failed, keeping previous cast", "tmdbId", tmdbID, "error", castErr)
	} else if err := s.store.ReplaceCast(ctx, showID, cast); err != nil {
		s.logger.Warn("cast write failed, keeping previous cast", "tmdbId", tmdbID, "error", err)
	}
	if videosErr != nil {
		s.logger.Warn("video fetch failed, keeping previous videos", "tmdbId", tmdbID, "error", videosErr)
	} else if err := s.store.ReplaceVideos(ctx, showID, videos); err != nil {
		s.logger.Warn("video write failed, keeping previous videos", "tmdbId", tmdbID, "error", err)
	}

	// Re-read rather than returning the in-memory fetch: the response must
	// reflect exactly what is durably stored, including any child data
	// preserved from a previous refresh.
	stored, err := s.store.ReadShow(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		// Row vanished under a concurrent prune.
		return nil, ErrNotFound
	}
	return s.assemble(ctx, stored)
}

func (s *Service) assemble(ctx context.Context, show *models.Show) (*models.ShowDetails, error) {
	cast, videos, seasons, err := s.store.ReadChildren(ctx, show.ID)
	if err != nil {
		return nil, err
	}
	return &models.ShowDetails{
		Show:    *show,
		Cast:    cast,
		Videos:  videos,
		Seasons: seasons,
	}, nil
}

// Search is always origin-sourced: relevance must reflect live data, so
// results are never served from or written to the cache.
func (s *Service) Search(ctx context.Context, query string, page int) (*models.SummaryPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	if page < 1 {
		page = 1
	}
	return s.origin.Search(ctx, query, page)
}

// Popular serves the popularity listing from the cache when it has anything
// for the requested page; only an empty page falls through to the origin, in
// which case the response is returned immediately and the top results are
// persisted in the background.
func (s *Service) Popular(ctx context.Context, page int) (*models.SummaryPage, error) {
	if page < 1 {
		page = 1
	}

	summaries, total, err := s.store.ListByPopularity(ctx, listingPageSize, (page-1)*listingPageSize)
	if err != nil {
		s.logger.Warn("popular cache read failed, falling back to origin", "error", err)
	} else if len(summaries) > 0 {
		totalPages := (total + listingPageSize - 1) / listingPageSize
		return &models.SummaryPage{
			Page:         page,
			TotalPages:   totalPages,
			TotalResults: total,
			Results:      summaries,
		}, nil
	}

	res, err := s.origin.Popular(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("fetch popular page %d: %w", page, err)
	}
	s.populateInBackground(res.Results)
	return res, nil
}

// Trending serves from the cache sorted by popularity when non-empty,
// otherwise from the origin's trending feed with background population.
func (s *Service) Trending(ctx context.Context) (*models.SummaryPage, error) {
	summaries, total, err := s.store.ListByPopularity(ctx, listingPageSize, 0)
	if err != nil {
		s.logger.Warn("trending cache read failed, falling back to origin", "error", err)
	} else if len(summaries) > 0 {
		totalPages := (total + listingPageSize - 1) / listingPageSize
		return &models.SummaryPage{
			Page:         1,
			TotalPages:   totalPages,
			TotalResults: total,
			Results:      summaries,
		}, nil
	}

	res, err := s.origin.Trending(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}
	s.populateInBackground(res.Results)
	return res, nil
}
