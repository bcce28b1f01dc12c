package repository

import (
	"context"

	"trackvote/internal/domain"
)

// VoteRepository defines the vote log operations admission and aggregation
// rely on
type VoteRepository interface {
	// FindTeam returns the team or nil when it does not exist
	FindTeam(ctx context.Context, teamID string) (*domain.Team, error)

	// CountVotesByTrack counts a voter's votes across all teams of a track
	CountVotesByTrack(ctx context.Context, email string, track domain.Track) (int, error)

	// CountVotesForTeam counts a voter's votes for one team (0 or 1)
	CountVotesForTeam(ctx context.Context, email, teamID string) (int, error)

	// CreateVote inserts a vote. A (voter_email, team_id) conflict yields
	// domain.ErrDuplicateVote and leaves no row behind.
	CreateVote(ctx context.Context, vote domain.NewVote) (*domain.Vote, error)

	// GetVote returns a vote with its team or nil when it does not exist
	GetVote(ctx context.Context, voteID string) (*domain.VoteWithTeam, error)

	// DeleteVote removes a vote and reports whether a row was deleted
	DeleteVote(ctx context.Context, voteID string) (bool, error)

	// ListVotes returns the filtered vote log in acceptance order
	ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.VoteWithTeam, error)
}

// TeamRepository defines team administration operations
type TeamRepository interface {
	// CreateTeam inserts a team; a taken name yields domain.ErrDuplicateTeamName
	CreateTeam(ctx context.Context, team *domain.Team) error

	// ListTeamsWithVoteCounts returns every team ordered by name
	ListTeamsWithVoteCounts(ctx context.Context) ([]domain.TeamWithVoteCount, error)
}

// Store is a complete storage backend
type Store interface {
	VoteRepository
	TeamRepository

	// Migrate creates the schema if it does not exist
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}
