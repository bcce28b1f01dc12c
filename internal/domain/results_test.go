package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGranularity_BucketStart(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	ts := time.Date(2025, 3, 1, 2, 44, 10, 0, loc) // 2025-02-28 19:44:10 UTC

	tests := []struct {
		g     Granularity
		start time.Time
		label string
	}{
		{GranularityHalfHour, time.Date(2025, 2, 28, 19, 30, 0, 0, time.UTC), "2025-02-28 19:30"},
		{GranularityHour, time.Date(2025, 2, 28, 19, 0, 0, 0, time.UTC), "2025-02-28 19:00"},
		{GranularityDay, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), "2025-02-28"},
	}

	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			start := tt.g.BucketStart(ts)
			assert.True(t, tt.start.Equal(start), "got %s", start)
			assert.Equal(t, tt.label, tt.g.Label(start))
		})
	}
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, GranularityHour, g)

	g, err = ParseGranularity("30min")
	require.NoError(t, err)
	assert.Equal(t, GranularityHalfHour, g)

	_, err = ParseGranularity("week")
	assert.Error(t, err)
}

func TestVoteFilter_Scope(t *testing.T) {
	tests := []struct {
		name      string
		filter    VoteFilter
		empty     bool
		trackOnly bool
	}{
		{"zero", VoteFilter{}, true, true},
		{"blank email", VoteFilter{EmailContains: "   "}, true, true},
		{"track", VoteFilter{Track: TrackArtPreU}, false, true},
		{"team", VoteFilter{TeamID: "t1"}, false, false},
		{"track and email", VoteFilter{Track: TrackArtPreU, EmailContains: "alice"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.filter.IsEmpty())
			assert.Equal(t, tt.trackOnly, tt.filter.TrackOnly())
		})
	}
}

func TestTrackValid(t *testing.T) {
	assert.True(t, TrackInnovationUpperSec.Valid())
	assert.False(t, Track("ART").Valid())
	assert.Len(t, Tracks, 6)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
