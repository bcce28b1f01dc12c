package service

import (
	"context"
	"errors"
	"strings"

	"trackvote/internal/domain"
	"trackvote/internal/repository"
	apperrors "trackvote/pkg/errors"
	"trackvote/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Rejection messages shown to voters
const (
	msgTeamIDRequired     = "Team ID is required"
	msgInvalidEmail       = "Please enter a valid email address"
	msgTokenRequired      = "Please complete the verification"
	msgVerificationFailed = "Verification failed, please try again"
	msgTeamNotFound       = "Team not found"
	msgTrackLimit         = "You have already voted 2 times for this track"
	msgDuplicateTeamVote  = "You have already voted for this team"
	msgInvalidTrack       = "Invalid track"
	msgVoteNotFound       = "Vote not found"
	msgServerError        = "Failed to submit vote, please try again"
)

// AdmissionOptions are the deployment switches of vote admission
type AdmissionOptions struct {
	// VerificationRequired makes a verified human token mandatory
	VerificationRequired bool
	// StrictTrackLimit re-checks the track budget inside the insert
	// transaction under a per-(voter, track) lock
	StrictTrackLimit bool
}

// VoteAdmissionService is the only writer of the vote log
type VoteAdmissionService struct {
	votes    repository.VoteRepository
	verifier HumanVerifier
	cache    *CacheService
	opts     AdmissionOptions
	validate *validator.Validate
	logger   *zap.Logger
}

// NewVoteAdmissionService creates the admission service. verifier may be nil
// when verification is not required.
func NewVoteAdmissionService(votes repository.VoteRepository, verifier HumanVerifier, cache *CacheService, opts AdmissionOptions, logger *zap.Logger) *VoteAdmissionService {
	if verifier == nil {
		verifier = StaticVerifier(false)
	}
	return &VoteAdmissionService{
		votes:    votes,
		verifier: verifier,
		cache:    cache,
		opts:     opts,
		validate: NewValidator(),
		logger:   logger,
	}
}

// SubmitVote decides whether a vote attempt becomes a durable vote. Checks
// run in order and stop at the first failure. Every rejection is an
// *apperrors.AppError with a 4xx status; anything else is a server error
// that left no row behind.
func (s *VoteAdmissionService) SubmitVote(ctx context.Context, req domain.VoteRequest, remoteIP string) (*domain.VoteAccepted, error) {
	teamID := strings.TrimSpace(req.TeamID)
	if err := s.validate.Var(teamID, "required"); err != nil {
		return nil, apperrors.NewInvalidInputError(msgTeamIDRequired, map[string]interface{}{"teamId": "required"})
	}

	email := domain.NormalizeEmail(req.VoterEmail)
	if err := s.validate.Var(email, "required,email,max=320"); err != nil {
		return nil, apperrors.NewInvalidInputError(msgInvalidEmail, map[string]interface{}{"voterEmail": "email"})
	}

	if s.opts.VerificationRequired {
		if strings.TrimSpace(req.VerificationToken) == "" {
			return nil, apperrors.NewVerificationFailedError(msgTokenRequired)
		}
		ok, err := s.verifier.Verify(ctx, req.VerificationToken, remoteIP)
		if err != nil {
			return nil, s.serverError("verify_token", teamID, email, err)
		}
		if !ok {
			return nil, apperrors.NewVerificationFailedError(msgVerificationFailed)
		}
	}

	team, err := s.votes.FindTeam(ctx, teamID)
	if err != nil {
		return nil, s.serverError("find_team", teamID, email, err)
	}
	if team == nil {
		return nil, apperrors.NewTeamNotFoundError(msgTeamNotFound)
	}

	trackCount, err := s.votes.CountVotesByTrack(ctx, email, team.Track)
	if err != nil {
		return nil, s.serverError("count_track_votes", teamID, email, err)
	}
	if trackCount >= domain.TrackVoteLimit {
		return nil, s.reject(apperrors.NewTrackLimitExceededError(msgTrackLimit), team, email)
	}

	teamCount, err := s.votes.CountVotesForTeam(ctx, email, teamID)
	if err != nil {
		return nil, s.serverError("count_team_votes", teamID, email, err)
	}
	if teamCount >= 1 {
		return nil, s.reject(apperrors.NewDuplicateTeamVoteError(msgDuplicateTeamVote), team, email)
	}

	nv := domain.NewVote{
		ID:         uuid.NewString(),
		VoterEmail: email,
		TeamID:     teamID,
		Track:      team.Track,
	}
	if s.opts.StrictTrackLimit {
		nv.EnforceTrackLimit = domain.TrackVoteLimit
	}

	vote, err := s.votes.CreateVote(ctx, nv)
	switch {
	case errors.Is(err, domain.ErrDuplicateVote):
		// a concurrent submission for the same pair won the race
		return nil, s.reject(apperrors.NewDuplicateTeamVoteError(msgDuplicateTeamVote), team, email)
	case errors.Is(err, domain.ErrTrackLimitReached):
		return nil, s.reject(apperrors.NewTrackLimitExceededError(msgTrackLimit), team, email)
	case errors.Is(err, domain.ErrTeamNotFound):
		return nil, apperrors.NewTeamNotFoundError(msgTeamNotFound)
	case err != nil:
		return nil, s.serverError("create_vote", teamID, email, err)
	}

	s.cache.Invalidate(ctx, "vote_accepted")

	s.logger.Info("Vote accepted",
		zap.String("vote_id", vote.ID),
		zap.String("team_id", team.ID),
		zap.String("track", string(team.Track)),
		zap.String("voter", logger.MaskEmail(email)))

	return &domain.VoteAccepted{
		Accepted:             true,
		VoteID:               vote.ID,
		TeamID:               team.ID,
		TeamName:             team.Name,
		Track:                team.Track,
		UpdatedCountForTrack: trackCount + 1,
		CreatedAt:            vote.CreatedAt,
	}, nil
}

// DeleteVote removes a vote as an administrative correction and returns the
// voter's recomputed count for the vote's track
func (s *VoteAdmissionService) DeleteVote(ctx context.Context, voteID string) (*domain.VoteDeleted, error) {
	voteID = strings.TrimSpace(voteID)
	if voteID == "" {
		return nil, apperrors.NewInvalidInputError("Vote ID is required", nil)
	}

	vote, err := s.votes.GetVote(ctx, voteID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to delete vote", err)
	}
	if vote == nil {
		return nil, apperrors.NewNotFoundError(msgVoteNotFound)
	}

	deleted, err := s.votes.DeleteVote(ctx, voteID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to delete vote", err)
	}
	if !deleted {
		// removed by a concurrent request after the read above
		return nil, apperrors.NewNotFoundError(msgVoteNotFound)
	}

	s.cache.Invalidate(ctx, "vote_deleted")

	count, err := s.votes.CountVotesByTrack(ctx, vote.VoterEmail, vote.Track)
	if err != nil {
		return nil, apperrors.NewInternalError("Vote deleted but failed to recount track votes", err)
	}

	s.logger.Info("Vote deleted",
		zap.String("vote_id", vote.ID),
		zap.String("team_id", vote.TeamID),
		zap.String("track", string(vote.Track)),
		zap.String("voter", logger.MaskEmail(vote.VoterEmail)))

	return &domain.VoteDeleted{
		VoteID:               vote.ID,
		VoterEmail:           vote.VoterEmail,
		Track:                vote.Track,
		UpdatedCountForTrack: count,
	}, nil
}

// TrackVoteCount returns the authoritative number of votes email has in track
func (s *VoteAdmissionService) TrackVoteCount(ctx context.Context, email string, track domain.Track) (*domain.TrackVoteCount, error) {
	email = domain.NormalizeEmail(email)
	if err := s.validate.Var(email, "required,email,max=320"); err != nil {
		return nil, apperrors.NewInvalidInputError(msgInvalidEmail, map[string]interface{}{"email": "email"})
	}
	if !track.Valid() {
		return nil, apperrors.NewInvalidInputError(msgInvalidTrack, map[string]interface{}{"track": "track"})
	}

	count, err := s.votes.CountVotesByTrack(ctx, email, track)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to count votes", err)
	}

	return &domain.TrackVoteCount{Email: email, Track: track, Count: count}, nil
}

// reject logs a business-rule rejection at debug level and passes it through
func (s *VoteAdmissionService) reject(appErr *apperrors.AppError, team *domain.Team, email string) error {
	s.logger.Debug("Vote rejected",
		zap.String("reason", string(appErr.Type)),
		zap.String("team_id", team.ID),
		zap.String("track", string(team.Track)),
		zap.String("voter", logger.MaskEmail(email)))
	return appErr
}

func (s *VoteAdmissionService) serverError(op, teamID, email string, err error) error {
	s.logger.Error("Vote admission failed",
		zap.String("operation", op),
		zap.String("team_id", teamID),
		zap.String("voter", logger.MaskEmail(email)),
		zap.Error(err))
	return apperrors.NewInternalError(msgServerError, err)
}
