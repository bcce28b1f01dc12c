package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trackvote/internal/domain"
	"trackvote/internal/repository"
	apperrors "trackvote/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TeamStore is the subset of storage team administration needs
type TeamStore interface {
	repository.TeamRepository
	FindTeam(ctx context.Context, teamID string) (*domain.Team, error)
}

// TeamService handles team administration
type TeamService struct {
	teams    TeamStore
	cache    *CacheService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewTeamService creates a new team service
func NewTeamService(teams TeamStore, cache *CacheService, logger *zap.Logger) *TeamService {
	return &TeamService{
		teams:    teams,
		cache:    cache,
		validate: NewValidator(),
		logger:   logger,
	}
}

// GetTeam returns a team for the public vote page
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, apperrors.NewInvalidInputError(msgTeamIDRequired, nil)
	}

	team, err := s.teams.FindTeam(ctx, teamID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load team", err)
	}
	if team == nil {
		return nil, apperrors.NewTeamNotFoundError(msgTeamNotFound)
	}
	return team, nil
}

// CreateTeam creates a single team
func (s *TeamService) CreateTeam(ctx context.Context, req domain.CreateTeamRequest) (*domain.Team, error) {
	team, err := s.createTeam(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, "team_created")
	return team, nil
}

// CreateTeams creates teams one by one. A failed item is reported in its
// result and does not stop the rest of the batch.
func (s *TeamService) CreateTeams(ctx context.Context, req domain.BulkCreateTeamsRequest) (*domain.BulkCreateTeamsResponse, error) {
	if len(req.Teams) == 0 {
		return nil, apperrors.NewInvalidInputError("At least one team is required", nil)
	}

	resp := &domain.BulkCreateTeamsResponse{
		Results: make([]domain.TeamCreateResult, 0, len(req.Teams)),
	}

	for _, item := range req.Teams {
		team, err := s.createTeam(ctx, item)
		if err != nil {
			appErr, ok := apperrors.As(err)
			if ok && !appErr.IsClientError() {
				// storage is failing; the rest of the batch would fail too
				if resp.Summary.Created > 0 {
					s.cache.Invalidate(ctx, "teams_created")
				}
				return nil, err
			}
			msg := err.Error()
			if ok {
				msg = appErr.Message
			}
			resp.Results = append(resp.Results, domain.TeamCreateResult{Request: item, Error: msg})
			resp.Summary.Errors++
			continue
		}
		resp.Results = append(resp.Results, domain.TeamCreateResult{Success: true, Team: team, Request: item})
		resp.Summary.Created++
	}

	resp.Summary.Total = len(req.Teams)
	resp.Message = fmt.Sprintf("Created %d of %d teams", resp.Summary.Created, resp.Summary.Total)

	if resp.Summary.Created > 0 {
		s.cache.Invalidate(ctx, "teams_created")
	}

	return resp, nil
}

func (s *TeamService) createTeam(ctx context.Context, req domain.CreateTeamRequest) (*domain.Team, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("Invalid team", validationDetails(err))
	}

	team := &domain.Team{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Track: req.Track,
	}

	if err := s.teams.CreateTeam(ctx, team); err != nil {
		if errors.Is(err, domain.ErrDuplicateTeamName) {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("Team %q already exists", req.Name), nil)
		}
		s.logger.Error("Failed to create team", zap.String("name", req.Name), zap.Error(err))
		return nil, apperrors.NewInternalError("Failed to create team", err)
	}

	s.logger.Info("Team created",
		zap.String("team_id", team.ID),
		zap.String("track", string(team.Track)))

	return team, nil
}
