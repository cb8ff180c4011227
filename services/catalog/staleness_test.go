package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNeedsRefreshZeroTimestamp(t *testing.T) {
	assert.True(t, needsRefresh(time.Time{}, DefaultMaxAge))
	assert.True(t, needsRefresh(time.Time{}, time.Nanosecond))
	assert.True(t, needsRefresh(time.Time{}, 100*365*24*time.Hour))
}

func TestNeedsRefreshWithinWindow(t *testing.T) {
	maxAge := 7 * 24 * time.Hour

	assert.False(t, needsRefresh(time.Now(), maxAge))
	assert.False(t, needsRefresh(time.Now().Add(-time.Hour), maxAge))
	assert.False(t, needsRefresh(time.Now().Add(-maxAge+time.Minute), maxAge))
}

func TestNeedsRefreshBeyondWindow(t *testing.T) {
	maxAge := 7 * 24 * time.Hour

	assert.True(t, needsRefresh(time.Now().Add(-maxAge-time.Minute), maxAge))
	assert.True(t, needsRefresh(time.Now().Add(-30*24*time.Hour), maxAge))
}

func TestNeedsRefreshPerCallOverride(t *testing.T) {
	refreshed := time.Now().Add(-3 * 24 * time.Hour)

	// Fresh for interactive reads, stale for a tighter maintenance window.
	assert.False(t, needsRefresh(refreshed, DefaultMaxAge))
	assert.True(t, needsRefresh(refreshed, 24*time.Hour))
}
