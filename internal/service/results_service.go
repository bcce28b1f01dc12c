package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"trackvote/internal/domain"
	"trackvote/internal/repository"
	apperrors "trackvote/pkg/errors"
	"trackvote/pkg/redis"

	"go.uber.org/zap"
)

// Dashboard windows
const (
	recentVotesWindow = 48 * time.Hour
	recentVotesLimit  = 100
	timeSeriesWindow  = 7 * 24 * time.Hour
)

// CSV layouts
var (
	csvLogHeader    = []string{"ID", "Email", "Team Name", "Track", "Created At"}
	csvCountsHeader = []string{"Team Name", "Track", "Total Votes"}
)

const csvTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ResultsStore is the read side the aggregator needs
type ResultsStore interface {
	ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.VoteWithTeam, error)
	ListTeamsWithVoteCounts(ctx context.Context) ([]domain.TeamWithVoteCount, error)
}

// ResultsService derives read-only views from the vote log. It never writes.
type ResultsService struct {
	store  ResultsStore
	cache  *CacheService
	now    func() time.Time
	logger *zap.Logger
}

// NewResultsService creates a results service
func NewResultsService(store ResultsStore, cache *CacheService, logger *zap.Logger) *ResultsService {
	return &ResultsService{
		store:  store,
		cache:  cache,
		now:    time.Now,
		logger: logger,
	}
}

func (s *ResultsService) listVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.VoteWithTeam, error) {
	votes, err := s.store.ListVotes(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to read vote log", zap.Error(err))
		return nil, apperrors.NewInternalError("Failed to load votes", err)
	}
	return votes, nil
}

// CountVotesByTeam returns ranked per-team counts for the filtered log.
// Unfiltered and track-only queries are served from the results cache.
func (s *ResultsService) CountVotesByTeam(ctx context.Context, filter domain.VoteFilter) ([]domain.TeamVoteCount, error) {
	return s.rankedCounts(ctx, filter, func(ctx context.Context) ([]domain.VoteWithTeam, error) {
		return s.listVotes(ctx, filter)
	})
}

// rankedCounts ranks the votes returned by fetch, going through the results
// cache when the filter is cacheable
func (s *ResultsService) rankedCounts(ctx context.Context, filter domain.VoteFilter, fetch func(context.Context) ([]domain.VoteWithTeam, error)) ([]domain.TeamVoteCount, error) {
	load := func(ctx context.Context) ([]domain.TeamVoteCount, error) {
		votes, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return RankTeams(votes), nil
	}

	if !filter.TrackOnly() || !s.cache.Enabled() {
		return load(ctx)
	}
	return cached(ctx, s.cache, s.cache.keyResults(string(filter.Track)), redis.TTLResults, false, load)
}

// TotalVotes returns the number of votes matching filter
func (s *ResultsService) TotalVotes(ctx context.Context, filter domain.VoteFilter) (int, error) {
	votes, err := s.listVotes(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(votes), nil
}

// TimeSeries buckets the whole vote log by granularity
func (s *ResultsService) TimeSeries(ctx context.Context, granularity domain.Granularity) ([]domain.TimeBucket, error) {
	votes, err := s.listVotes(ctx, domain.VoteFilter{})
	if err != nil {
		return nil, err
	}
	return BucketVotes(votes, granularity), nil
}

// ListVotes returns the admin listing: matching votes newest first with
// ranked counts and the total
func (s *ResultsService) ListVotes(ctx context.Context, filter domain.VoteFilter) (*domain.VoteListing, error) {
	votes, err := s.listVotes(ctx, filter)
	if err != nil {
		return nil, err
	}

	counts, err := s.rankedCounts(ctx, filter, func(context.Context) ([]domain.VoteWithTeam, error) {
		return votes, nil
	})
	if err != nil {
		return nil, err
	}

	newestFirst := make([]domain.VoteWithTeam, len(votes))
	for i, v := range votes {
		newestFirst[len(votes)-1-i] = v
	}

	return &domain.VoteListing{
		Votes:      newestFirst,
		VoteCounts: counts,
		TotalVotes: len(votes),
	}, nil
}

// ExportCSV renders the filtered log in the requested layout
func (s *ResultsService) ExportCSV(ctx context.Context, filter domain.VoteFilter, mode domain.ExportMode) ([]byte, error) {
	if mode == "" {
		mode = domain.ExportModeLog
	}
	if mode != domain.ExportModeLog && mode != domain.ExportModeCounts {
		return nil, apperrors.NewInvalidInputError("Invalid export mode", map[string]interface{}{"mode": string(mode)})
	}

	votes, err := s.listVotes(ctx, filter)
	if err != nil {
		return nil, err
	}

	var data []byte
	if mode == domain.ExportModeCounts {
		data, err = WriteCountsCSV(RankTeams(votes))
	} else {
		data, err = WriteVoteLogCSV(votes)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to render CSV", err)
	}
	return data, nil
}

// Dashboard returns the analytics payload. refresh bypasses the cache. The
// query count reflects storage calls made by this request only, so a cache
// hit reports zero.
func (s *ResultsService) Dashboard(ctx context.Context, refresh bool) (*domain.DashboardData, error) {
	load := func(ctx context.Context) (*domain.DashboardData, error) {
		votes, err := s.listVotes(ctx, domain.VoteFilter{})
		if err != nil {
			return nil, err
		}
		return BuildDashboard(votes, s.now()), nil
	}

	var (
		data *domain.DashboardData
		err  error
	)
	if s.cache.Enabled() {
		data, err = cached(ctx, s.cache, s.cache.keyDashboard(), s.cache.ttl, refresh, load)
	} else {
		data, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := *data
	out.QueryCount = repository.QueryCounterFrom(ctx).Count()
	return &out, nil
}

// ListTeams returns every team with its vote count, ordered by name
func (s *ResultsService) ListTeams(ctx context.Context) ([]domain.TeamWithVoteCount, error) {
	load := func(ctx context.Context) ([]domain.TeamWithVoteCount, error) {
		teams, err := s.store.ListTeamsWithVoteCounts(ctx)
		if err != nil {
			s.logger.Error("Failed to list teams", zap.Error(err))
			return nil, apperrors.NewInternalError("Failed to load teams", err)
		}
		return teams, nil
	}

	if !s.cache.Enabled() {
		return load(ctx)
	}
	return cached(ctx, s.cache, s.cache.keyTeams(), redis.TTLTeams, false, load)
}

// RankTeams counts votes per team, sorts by count descending with ties kept
// in order of each team's first vote, and numbers ranks 1..n without sharing
func RankTeams(votes []domain.VoteWithTeam) []domain.TeamVoteCount {
	index := make(map[string]int)
	counts := make([]domain.TeamVoteCount, 0)

	for _, v := range votes {
		i, ok := index[v.TeamID]
		if !ok {
			i = len(counts)
			index[v.TeamID] = i
			counts = append(counts, domain.TeamVoteCount{
				TeamID:   v.TeamID,
				TeamName: v.TeamName,
				Track:    v.Track,
			})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(a, b int) bool {
		return counts[a].Count > counts[b].Count
	})
	for i := range counts {
		counts[i].Rank = i + 1
	}

	return counts
}

// BucketVotes groups votes into UTC buckets. Only non-empty buckets are
// returned, ascending by start.
func BucketVotes(votes []domain.VoteWithTeam, granularity domain.Granularity) []domain.TimeBucket {
	byStart := make(map[time.Time]int)
	for _, v := range votes {
		byStart[granularity.BucketStart(v.CreatedAt)]++
	}

	buckets := make([]domain.TimeBucket, 0, len(byStart))
	for start, n := range byStart {
		buckets = append(buckets, domain.TimeBucket{
			Time:        granularity.Label(start),
			BucketStart: start,
			Count:       n,
		})
	}
	sort.Slice(buckets, func(a, b int) bool {
		return buckets[a].BucketStart.Before(buckets[b].BucketStart)
	})

	return buckets
}

// BuildDashboard computes the analytics payload from a log in acceptance order
func BuildDashboard(votes []domain.VoteWithTeam, now time.Time) *domain.DashboardData {
	now = now.UTC()
	data := &domain.DashboardData{
		TotalVotes:   len(votes),
		VotesByTrack: make([]domain.TrackCount, 0, len(domain.Tracks)),
		RecentVotes:  make([]domain.VoteWithTeam, 0),
		GeneratedAt:  now,
	}

	if len(votes) > 0 {
		first, last := votes[0].CreatedAt, votes[0].CreatedAt
		for _, v := range votes[1:] {
			if v.CreatedAt.Before(first) {
				first = v.CreatedAt
			}
			if v.CreatedAt.After(last) {
				last = v.CreatedAt
			}
		}
		data.DateRange = domain.DateRange{First: &first, Last: &last}
	}

	perTrack := make(map[domain.Track]int)
	for _, v := range votes {
		perTrack[v.Track]++
	}
	for _, track := range domain.Tracks {
		if n := perTrack[track]; n > 0 {
			data.VotesByTrack = append(data.VotesByTrack, domain.TrackCount{Track: track, Count: n})
		}
	}

	recentSince := now.Add(-recentVotesWindow)
	for i := len(votes) - 1; i >= 0 && len(data.RecentVotes) < recentVotesLimit; i-- {
		if votes[i].CreatedAt.After(recentSince) {
			data.RecentVotes = append(data.RecentVotes, votes[i])
		}
	}

	seriesSince := now.Add(-timeSeriesWindow)
	windowed := make([]domain.VoteWithTeam, 0, len(votes))
	for _, v := range votes {
		if !v.CreatedAt.Before(seriesSince) {
			windowed = append(windowed, v)
		}
	}
	data.TimeSeries = BucketVotes(windowed, domain.GranularityHour)

	return data
}

// WriteVoteLogCSV renders one row per vote
func WriteVoteLogCSV(votes []domain.VoteWithTeam) ([]byte, error) {
	rows := make([][]string, 0, len(votes)+1)
	rows = append(rows, csvLogHeader)
	for _, v := range votes {
		rows = append(rows, []string{
			v.ID,
			v.VoterEmail,
			v.TeamName,
			string(v.Track),
			v.CreatedAt.UTC().Format(csvTimeLayout),
		})
	}
	return writeCSV(rows)
}

// WriteCountsCSV renders one row per team
func WriteCountsCSV(counts []domain.TeamVoteCount) ([]byte, error) {
	rows := make([][]string, 0, len(counts)+1)
	rows = append(rows, csvCountsHeader)
	for _, c := range counts {
		rows = append(rows, []string{c.TeamName, string(c.Track), strconv.Itoa(c.Count)})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
