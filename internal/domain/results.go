package domain

import (
	"fmt"
	"strings"
	"time"
)

// VoteFilter narrows the vote log. Zero values mean "no constraint".
type VoteFilter struct {
	Track         Track
	TeamID        string
	EmailContains string
}

// IsEmpty reports whether the filter selects the whole log
func (f VoteFilter) IsEmpty() bool {
	return f.Track == "" && f.TeamID == "" && strings.TrimSpace(f.EmailContains) == ""
}

// TrackOnly reports whether the filter narrows by track alone, if at all
func (f VoteFilter) TrackOnly() bool {
	f.Track = ""
	return f.IsEmpty()
}

// TeamVoteCount is one ranked row of a results table
type TeamVoteCount struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	Track    Track  `json:"track"`
	Count    int    `json:"count"`
	Rank     int    `json:"rank"`
}

// VoteListing is the admin listing payload
type VoteListing struct {
	Votes      []VoteWithTeam  `json:"votes"`
	VoteCounts []TeamVoteCount `json:"voteCounts"`
	TotalVotes int             `json:"totalVotes"`
}

// Granularity is the width of a time-series bucket
type Granularity string

const (
	GranularityHalfHour Granularity = "30min"
	GranularityHour     Granularity = "hour"
	GranularityDay      Granularity = "day"
)

// ParseGranularity validates a granularity string; empty means hourly
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", GranularityHour:
		return GranularityHour, nil
	case GranularityHalfHour, GranularityDay:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// BucketStart truncates t to the start of its UTC bucket
func (g Granularity) BucketStart(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularityHalfHour:
		return t.Truncate(30 * time.Minute)
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(time.Hour)
	}
}

// Label formats a bucket start for display
func (g Granularity) Label(start time.Time) string {
	if g == GranularityDay {
		return start.UTC().Format("2006-01-02")
	}
	return start.UTC().Format("2006-01-02 15:04")
}

// TimeBucket is one non-empty bucket of a time series
type TimeBucket struct {
	Time        string    `json:"time"`
	BucketStart time.Time `json:"bucketStart"`
	Count       int       `json:"count"`
}

// ExportMode selects the CSV layout
type ExportMode string

const (
	ExportModeLog    ExportMode = "log"
	ExportModeCounts ExportMode = "counts"
)

// TrackCount is the number of votes cast in one track
type TrackCount struct {
	Track Track `json:"trackId"`
	Count int   `json:"count"`
}

// DateRange spans the first and last vote; nil when the log is empty
type DateRange struct {
	First *time.Time `json:"first"`
	Last  *time.Time `json:"last"`
}

// DashboardData is the admin analytics payload
type DashboardData struct {
	TotalVotes   int            `json:"totalVotes"`
	DateRange    DateRange      `json:"dateRange"`
	VotesByTrack []TrackCount   `json:"votesByTrack"`
	RecentVotes  []VoteWithTeam `json:"recentVotes"`
	TimeSeries   []TimeBucket   `json:"timeSeries"`
	GeneratedAt  time.Time      `json:"generatedAt"`
	QueryCount   int64          `json:"queryCount"`
}
