package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"trackvote/internal/domain"
	"trackvote/internal/middleware"
	"trackvote/pkg/errors"
	"trackvote/pkg/logger"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes err as a JSON error. Errors that are not an AppError
// are reported as internal errors without leaking their text.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError("Internal server error", err)
	}
	if !appErr.IsClientError() {
		log.WithFields(map[string]interface{}{
			"request_id": middleware.GetRequestID(r.Context()),
			"path":       r.URL.Path,
		}).WithError(err).Error("Request failed")
	}
	errors.WriteJSON(w, appErr)
}

// decodeJSON reads a JSON body into dst
func decodeJSON(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewInvalidInputError("Invalid request body", nil)
	}
	return nil
}

// parseFilter reads the track, teamId and email query parameters
func parseFilter(r *http.Request) (domain.VoteFilter, error) {
	q := r.URL.Query()
	filter := domain.VoteFilter{
		Track:         domain.Track(strings.TrimSpace(q.Get("track"))),
		TeamID:        strings.TrimSpace(q.Get("teamId")),
		EmailContains: strings.TrimSpace(q.Get("email")),
	}
	if filter.Track != "" && !filter.Track.Valid() {
		return filter, errors.NewInvalidInputError("Invalid track", map[string]interface{}{"track": string(filter.Track)})
	}
	return filter, nil
}
