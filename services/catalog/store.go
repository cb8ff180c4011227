package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"showsync/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists shows and their dependent collections in SQLite. Show rows
// are keyed by the origin's id; internal ids are AUTOINCREMENT and therefore
// never reused once assigned, even after a prune. Child rows cascade-delete
// with their parent show.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the catalog database at path and
// applies any pending schema migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_loc=UTC", path))
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const showColumns = `id, tmdb_id, name, original_name, overview, poster_path, backdrop_path,
	first_air_date, last_air_date, vote_average, vote_count, popularity, status,
	episode_count, season_count, genre_ids, origin_countries, last_refreshed_at`

// ReadShow returns the cached show with the given origin id, or nil when the
// show has never been cached.
func (s *Store) ReadShow(ctx context.Context, tmdbID int64) (*models.Show, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE tmdb_id = ?`, tmdbID)
	show, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read show %d: %w", tmdbID, err)
	}
	return show, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (*models.Show, error) {
	var (
		show      models.Show
		genres    string
		countries string
	)
	err := row.Scan(
		&show.ID, &show.TMDBID, &show.Name, &show.OriginalName, &show.Overview,
		&show.PosterPath, &show.BackdropPath, &show.FirstAirDate, &show.LastAirDate,
		&show.VoteAverage, &show.VoteCount, &show.Popularity, &show.Status,
		&show.EpisodeCount, &show.SeasonCount, &genres, &countries, &show.LastRefreshedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &show.GenreIDs); err != nil {
		return nil, fmt.Errorf("decode genre ids: %w", err)
	}
	if err := json.Unmarshal([]byte(countries), &show.OriginCountries); err != nil {
		return nil, fmt.Errorf("decode origin countries: %w", err)
	}
	return &show, nil
}

// UpsertShow creates the show on first write and updates it in place on every
// later write, keyed by tmdb_id. It returns the authoritative internal id,
// always resolved by re-querying the row: LastInsertId is meaningless on the
// conflict path and must not be trusted under racing inserts.
func (s *Store) UpsertShow(ctx context.Context, show *models.Show) (int64, error) {
	genres, err := json.Marshal(emptyIfNilInt64(show.GenreIDs))
	if err != nil {
		return 0, err
	}
	countries, err := json.Marshal(emptyIfNilString(show.OriginCountries))
	if err != nil {
		return 0, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shows (tmdb_id, name, original_name, overview, poster_path, backdrop_path,
			first_air_date, last_air_date, vote_average, vote_count, popularity, status,
			episode_count, season_count, genre_ids, origin_countries, last_refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tmdb_id) DO UPDATE SET
			name = excluded.name,
			original_name = excluded.original_name,
			overview = excluded.overview,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			first_air_date = excluded.first_air_date,
			last_air_date = excluded.last_air_date,
			vote_average = excluded.vote_average,
			vote_count = excluded.vote_count,
			popularity = excluded.popularity,
			status = excluded.status,
			episode_count = excluded.episode_count,
			season_count = excluded.season_count,
			genre_ids = excluded.genre_ids,
			origin_countries = excluded.origin_countries,
			last_refreshed_at = excluded.last_refreshed_at`,
		show.TMDBID, show.Name, show.OriginalName, show.Overview, show.PosterPath,
		show.BackdropPath, show.FirstAirDate, show.LastAirDate, show.VoteAverage,
		show.VoteCount, show.Popularity, show.Status, show.EpisodeCount,
		show.SeasonCount, string(genres), string(countries), show.LastRefreshedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert show %d: %w", show.TMDBID, err)
	}

	return s.internalID(ctx, show.TMDBID)
}

// UpsertSummary upserts only the fields a listing response carries. An
// existing row keeps its status, counts, and last_refreshed_at so that a
// background populate never masks a full detail row as freshly refreshed; a
// new row starts with a zero last_refreshed_at and is picked up as stale by
// the next detail read or maintenance pass.
func (s *Store) UpsertSummary(ctx context.Context, sum models.ShowSummary) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shows (tmdb_id, name, overview, poster_path, backdrop_path,
			first_air_date, vote_average, popularity, last_refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tmdb_id) DO UPDATE SET
			name = excluded.name,
			overview = excluded.overview,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			first_air_date = excluded.first_air_date,
			vote_average = excluded.vote_average,
			popularity = excluded.popularity`,
		sum.TMDBID, sum.Name, sum.Overview, sum.PosterPath, sum.BackdropPath,
		sum.FirstAirDate, sum.VoteAverage, sum.Popularity, time.Time{},
	)
	if err != nil {
		return 0, fmt.Errorf("upsert show summary %d: %w", sum.TMDBID, err)
	}
	return s.internalID(ctx, sum.TMDBID)
}

func (s *Store) internalID(ctx context.Context, tmdbID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM shows WHERE tmdb_id = ?`, tmdbID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve internal id for show %d: %w", tmdbID, err)
	}
	return id, nil
}

// ReadChildren returns all dependent collections for a show by internal id.
// Empty collections are returned as empty slices, never as an error.
func (s *Store) ReadChildren(ctx context.Context, showID int64) ([]models.CastMember, []models.Video, []models.Season, error) {
	cast, err := s.readCast(ctx, showID)
	if err != nil {
		return nil, nil, nil, err
	}
	videos, err := s.readVideos(ctx, showID)
	if err != nil {
		return nil, nil, nil, err
	}
	seasons, err := s.readSeasons(ctx, showID)
	if err != nil {
		return nil, nil, nil, err
	}
	return cast, videos, seasons, nil
}

func (s *Store) readCast(ctx context.Context, showID int64) ([]models.CastMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT show_id, person_id, name, character_name, profile_path, cast_order
		FROM show_cast WHERE show_id = ? ORDER BY cast_order, id`, showID)
	if err != nil {
		return nil, fmt.Errorf("read cast for show %d: %w", showID, err)
	}
	defer rows.Close()

	cast := make([]models.CastMember, 0)
	for rows.Next() {
		var m models.CastMember
		if err := rows.Scan(&m.ShowID, &m.PersonID, &m.Name, &m.Character, &m.ProfilePath, &m.Order); err != nil {
			return nil, err
		}
		cast = append(cast, m)
	}
	return cast, rows.Err()
}

func (s *Store) readVideos(ctx context.Context, showID int64) ([]models.Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT show_id, video_id, site, type, name, published_at
		FROM show_videos WHERE show_id = ? ORDER BY id`, showID)
	if err != nil {
		return nil, fmt.Errorf("read videos for show %d: %w", showID, err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ShowID, &v.VideoID, &v.Site, &v.Type, &v.Name, &v.PublishedAt); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (s *Store) readSeasons(ctx context.Context, showID int64) ([]models.Season, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT show_id, season_number, name, episode_count, air_date, poster_path
		FROM show_seasons WHERE show_id = ? ORDER BY season_number`, showID)
	if err != nil {
		return nil, fmt.Errorf("read seasons for show %d: %w", showID, err)
	}
	defer rows.Close()

	seasons := make([]models.Season, 0)
	for rows.Next() {
		var ss models.Season
		if err := rows.Scan(&ss.ShowID, &ss.SeasonNumber, &ss.Name, &ss.EpisodeCount, &ss.AirDate, &ss.PosterPath); err != nil {
			return nil, err
		}
		seasons = append(seasons, ss)
	}
	return seasons, rows.Err()
}

// ReplaceCast clears and rewrites the cast collection for one show in a single
// transaction. Collections are replaced wholesale: the origin returns the full
// set each time, so there is nothing to diff.
func (s *Store) ReplaceCast(ctx context.Context, showID int64, cast []models.CastMember) error {
	return s.replaceChildren(ctx, showID, "show_cast", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO show_cast (show_id, person_id, name, character_name, profile_path, cast_order)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, m := range cast {
			if _, err := stmt.ExecContext(ctx, showID, m.PersonID, m.Name, m.Character, m.ProfilePath, m.Order); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceVideos clears and rewrites the video collection for one show.
func (s *Store) ReplaceVideos(ctx context.Context, showID int64, videos []models.Video) error {
	return s.replaceChildren(ctx, showID, "show_videos", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO show_videos (show_id, video_id, site, type, name, published_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, v := range videos {
			if _, err := stmt.ExecContext(ctx, showID, v.VideoID, v.Site, v.Type, v.Name, v.PublishedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceSeasons clears and rewrites the season collection for one show.
func (s *Store) ReplaceSeasons(ctx context.Context, showID int64, seasons []models.Season) error {
	return s.replaceChildren(ctx, showID, "show_seasons", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO show_seasons (show_id, season_number, name, episode_count, air_date, poster_path)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, ss := range seasons {
			if _, err := stmt.ExecContext(ctx, showID, ss.SeasonNumber, ss.Name, ss.EpisodeCount, ss.AirDate, ss.PosterPath); err != nil {
				return err
			}
		}
		return nil
	})
}

// replaceChildren runs the delete+insert for one collection kind inside a
// transaction. A failure here rolls back only this kind; the show row and the
// other kinds are untouched.
func (s *Store) replaceChildren(ctx context.Context, showID int64, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s for show %d: %w", table, showID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE show_id = ?`, table), showID); err != nil {
		return fmt.Errorf("replace %s for show %d: %w", table, showID, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("replace %s for show %d: %w", table, showID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s for show %d: %w", table, showID, err)
	}
	return nil
}

// ListStale returns up to limit origin ids whose shows have not been refreshed
// within maxAge, oldest first. Rows seeded by the background populator carry a
// zero refresh time and therefore sort to the front.
func (s *Store) ListStale(ctx context.Context, maxAge time.Duration, limit int) ([]int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	rows, err := s.db.QueryContext(ctx, `
		SELECT tmdb_id FROM shows WHERE last_refreshed_at < ?
		ORDER BY last_refreshed_at ASC LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale shows: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteOlderThan hard-deletes shows whose last refresh is older than maxAge
// and returns the number removed. Child rows go with their parent via the
// cascade. Maintenance-only: normal read traffic never deletes.
func (s *Store) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx, `DELETE FROM shows WHERE last_refreshed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune shows: %w", err)
	}
	return res.RowsAffected()
}

// ListByPopularity returns one cache-sourced listing page sorted by
// popularity, plus the total number of cached shows.
func (s *Store) ListByPopularity(ctx context.Context, limit, offset int) ([]models.ShowSummary, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tmdb_id, name, overview, poster_path, backdrop_path, first_air_date, vote_average, popularity
		FROM shows ORDER BY popularity DESC, tmdb_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list shows by popularity: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ShowSummary, 0, limit)
	for rows.Next() {
		var sum models.ShowSummary
		if err := rows.Scan(&sum.TMDBID, &sum.Name, &sum.Overview, &sum.PosterPath,
			&sum.BackdropPath, &sum.FirstAirDate, &sum.VoteAverage, &sum.Popularity); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}

func emptyIfNilInt64(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func emptyIfNilString(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
