package service

import (
	"context"

	"trackvote/internal/domain"
)

// VoteService defines the write side of the vote log
type VoteService interface {
	// SubmitVote admits or rejects a vote attempt
	SubmitVote(ctx context.Context, req domain.VoteRequest, remoteIP string) (*domain.VoteAccepted, error)

	// DeleteVote removes a vote as an administrative correction
	DeleteVote(ctx context.Context, voteID string) (*domain.VoteDeleted, error)

	// TrackVoteCount returns the authoritative per-track count for a voter
	TrackVoteCount(ctx context.Context, email string, track domain.Track) (*domain.TrackVoteCount, error)
}

// ResultsReader defines the read-only views over the vote log
type ResultsReader interface {
	CountVotesByTeam(ctx context.Context, filter domain.VoteFilter) ([]domain.TeamVoteCount, error)
	TotalVotes(ctx context.Context, filter domain.VoteFilter) (int, error)
	TimeSeries(ctx context.Context, granularity domain.Granularity) ([]domain.TimeBucket, error)
	ExportCSV(ctx context.Context, filter domain.VoteFilter, mode domain.ExportMode) ([]byte, error)
	ListVotes(ctx context.Context, filter domain.VoteFilter) (*domain.VoteListing, error)
	Dashboard(ctx context.Context, refresh bool) (*domain.DashboardData, error)
	ListTeams(ctx context.Context) ([]domain.TeamWithVoteCount, error)
}

// TeamAdministrator defines team lookup and creation
type TeamAdministrator interface {
	GetTeam(ctx context.Context, teamID string) (*domain.Team, error)
	CreateTeam(ctx context.Context, req domain.CreateTeamRequest) (*domain.Team, error)
	CreateTeams(ctx context.Context, req domain.BulkCreateTeamsRequest) (*domain.BulkCreateTeamsResponse, error)
}

// Services aggregates all service interfaces
type Services struct {
	Votes   VoteService
	Results ResultsReader
	Teams   TeamAdministrator
}

var (
	_ VoteService       = (*VoteAdmissionService)(nil)
	_ ResultsReader     = (*ResultsService)(nil)
	_ TeamAdministrator = (*TeamService)(nil)
)
