package handler

import (
	"net/http"

	"trackvote/internal/domain"
	"trackvote/internal/middleware"
	"trackvote/internal/service"
	"trackvote/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// VotingHandler serves the public voting endpoints
type VotingHandler struct {
	votes  service.VoteService
	teams  service.TeamAdministrator
	logger *logger.Logger
}

func NewVotingHandler(votes service.VoteService, teams service.TeamAdministrator, logger *logger.Logger) *VotingHandler {
	return &VotingHandler{
		votes:  votes,
		teams:  teams,
		logger: logger,
	}
}

// SubmitVote handles POST /api/vote
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req domain.VoteRequest
	if err := decodeJSON(r, w, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	accepted, err := h.votes.SubmitVote(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, accepted)
}

// GetTrackVoteCount handles GET /api/vote/count?email=&track=
func (h *VotingHandler) GetTrackVoteCount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := h.votes.TrackVoteCount(r.Context(), q.Get("email"), domain.Track(q.Get("track")))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, count)
}

// GetTeam handles GET /api/teams/{teamId}
func (h *VotingHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.teams.GetTeam(r.Context(), chi.URLParam(r, "teamId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}
