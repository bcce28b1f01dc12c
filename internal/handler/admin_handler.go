package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"trackvote/internal/domain"
	"trackvote/internal/service"
	"trackvote/internal/service/auth"
	"trackvote/pkg/errors"
	"trackvote/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// AdminLogin issues admin session tokens
type AdminLogin interface {
	Login(ctx context.Context, password string) (*auth.LoginResponse, error)
}

// AdminHandler serves the admin surface
type AdminHandler struct {
	auth    AdminLogin
	votes   service.VoteService
	results service.ResultsReader
	teams   service.TeamAdministrator
	logger  *logger.Logger
	now     func() time.Time
}

func NewAdminHandler(authService AdminLogin, services *service.Services, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		auth:    authService,
		votes:   services.Votes,
		results: services.Results,
		teams:   services.Teams,
		logger:  logger,
		now:     time.Now,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, w, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// ListVotes handles GET /api/admin/votes
func (h *AdminHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	listing, err := h.results.ListVotes(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, listing)
}

// DeleteVote handles DELETE /api/admin/votes/{id}
func (h *AdminHandler) DeleteVote(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.votes.DeleteVote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, deleted)
}

// Export handles GET /api/admin/export?mode=log|counts
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	mode := domain.ExportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.ExportModeLog
	}

	data, err := h.results.ExportCSV(r.Context(), filter, mode)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	filename := fmt.Sprintf("votes-%s-%s.csv", mode, h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type timelineResponse struct {
	Granularity domain.Granularity  `json:"granularity"`
	Timeline    []domain.TimeBucket `json:"timeline"`
}

// Timeline handles GET /api/admin/timeline?granularity=30min|hour|day
func (h *AdminHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	granularity, err := domain.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		respondError(w, r, h.logger, errors.NewInvalidInputError("Invalid granularity",
			map[string]interface{}{"granularity": r.URL.Query().Get("granularity")}))
		return
	}

	series, err := h.results.TimeSeries(r.Context(), granularity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if series == nil {
		series = []domain.TimeBucket{}
	}

	respondJSON(w, http.StatusOK, timelineResponse{Granularity: granularity, Timeline: series})
}

// Dashboard handles GET /api/admin/dashboard[?refresh=true]
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	data, err := h.results.Dashboard(r.Context(), refresh)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, data)
}

// ListTeams handles GET /api/admin/teams
func (h *AdminHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.results.ListTeams(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if teams == nil {
		teams = []domain.TeamWithVoteCount{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

// CreateTeams handles POST /api/admin/teams. The body is either a single
// team or {"teams": [...]} for a bulk creation.
func (h *AdminHandler) CreateTeams(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, h.logger, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		respondError(w, r, h.logger, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	if _, bulk := fields["teams"]; bulk {
		var req domain.BulkCreateTeamsRequest
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, r, h.logger, errors.NewInvalidInputError("Invalid request body", nil))
			return
		}
		resp, err := h.teams.CreateTeams(r.Context(), req)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, resp)
		return
	}

	var req domain.CreateTeamRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, r, h.logger, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}
	team, err := h.teams.CreateTeam(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, team)
}
