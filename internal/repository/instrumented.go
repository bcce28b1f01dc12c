package repository

import (
	"context"
	"sync/atomic"
	"time"

	"trackvote/internal/domain"

	"go.uber.org/zap"
)

// QueryCounter counts storage round trips made on behalf of one request
type QueryCounter struct {
	n atomic.Int64
}

// Add records one query
func (c *QueryCounter) Add() {
	if c != nil {
		c.n.Add(1)
	}
}

// Count returns the number of recorded queries
func (c *QueryCounter) Count() int64 {
	if c == nil {
		return 0
	}
	return c.n.Load()
}

type queryCounterKey struct{}

// WithQueryCounter attaches a fresh counter to ctx
func WithQueryCounter(ctx context.Context) (context.Context, *QueryCounter) {
	c := &QueryCounter{}
	return context.WithValue(ctx, queryCounterKey{}, c), c
}

// QueryCounterFrom returns the counter attached to ctx, or nil
func QueryCounterFrom(ctx context.Context) *QueryCounter {
	c, _ := ctx.Value(queryCounterKey{}).(*QueryCounter)
	return c
}

// instrumentedStore wraps a Store and logs the duration of every operation.
// Operations are also counted against the request's QueryCounter, if any.
type instrumentedStore struct {
	next Store
	log  *zap.Logger
}

// NewInstrumentedStore decorates next with timing logs and query counting
func NewInstrumentedStore(next Store, log *zap.Logger) Store {
	return &instrumentedStore{next: next, log: log}
}

func (s *instrumentedStore) observe(ctx context.Context, op string, start time.Time, err error) {
	QueryCounterFrom(ctx).Add()
	dur := time.Since(start)
	if err != nil {
		s.log.Info("db_"+op,
			zap.Duration("duration", dur),
			zap.Error(err))
		return
	}
	s.log.Debug("db_"+op, zap.Duration("duration", dur))
}

func (s *instrumentedStore) FindTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	start := time.Now()
	team, err := s.next.FindTeam(ctx, teamID)
	s.observe(ctx, "find_team", start, err)
	return team, err
}

func (s *instrumentedStore) CountVotesByTrack(ctx context.Context, email string, track domain.Track) (int, error) {
	start := time.Now()
	n, err := s.next.CountVotesByTrack(ctx, email, track)
	s.observe(ctx, "count_votes_by_track", start, err)
	return n, err
}

func (s *instrumentedStore) CountVotesForTeam(ctx context.Context, email, teamID string) (int, error) {
	start := time.Now()
	n, err := s.next.CountVotesForTeam(ctx, email, teamID)
	s.observe(ctx, "count_votes_for_team", start, err)
	return n, err
}

func (s *instrumentedStore) CreateVote(ctx context.Context, nv domain.NewVote) (*domain.Vote, error) {
	start := time.Now()
	vote, err := s.next.CreateVote(ctx, nv)
	s.observe(ctx, "create_vote", start, err)
	return vote, err
}

func (s *instrumentedStore) GetVote(ctx context.Context, voteID string) (*domain.VoteWithTeam, error) {
	start := time.Now()
	vote, err := s.next.GetVote(ctx, voteID)
	s.observe(ctx, "get_vote", start, err)
	return vote, err
}

func (s *instrumentedStore) DeleteVote(ctx context.Context, voteID string) (bool, error) {
	start := time.Now()
	ok, err := s.next.DeleteVote(ctx, voteID)
	s.observe(ctx, "delete_vote", start, err)
	return ok, err
}

func (s *instrumentedStore) ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.VoteWithTeam, error) {
	start := time.Now()
	votes, err := s.next.ListVotes(ctx, filter)
	s.observe(ctx, "list_votes", start, err)
	return votes, err
}

func (s *instrumentedStore) CreateTeam(ctx context.Context, team *domain.Team) error {
	start := time.Now()
	err := s.next.CreateTeam(ctx, team)
	s.observe(ctx, "create_team", start, err)
	return err
}

func (s *instrumentedStore) ListTeamsWithVoteCounts(ctx context.Context) ([]domain.TeamWithVoteCount, error) {
	start := time.Now()
	teams, err := s.next.ListTeamsWithVoteCounts(ctx)
	s.observe(ctx, "list_teams", start, err)
	return teams, err
}

func (s *instrumentedStore) Migrate(ctx context.Context) error {
	start := time.Now()
	err := s.next.Migrate(ctx)
	s.observe(ctx, "migrate", start, err)
	return err
}

func (s *instrumentedStore) Health(ctx context.Context) error {
	return s.next.Health(ctx)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
