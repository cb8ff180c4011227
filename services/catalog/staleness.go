package catalog

import "time"

// DefaultMaxAge is the staleness window for cached show metadata. Callers may
// override it per call; maintenance jobs typically use a different threshold
// than interactive reads.
const DefaultMaxAge = 7 * 24 * time.Hour

// needsRefresh reports whether a cached show must be refetched from the
// origin. A zero lastRefreshedAt means the show has never been successfully
// refreshed and always needs one.
func needsRefresh(lastRefreshedAt time.Time, maxAge time.Duration) bool {
	if lastRefreshedAt.IsZero() {
		return true
	}
	return time.Since(lastRefreshedAt) > maxAge
}
