package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeInvalidInput       ErrorType = "invalid_input"
	ErrorTypeVerificationFailed ErrorType = "verification_failed"
	ErrorTypeTeamNotFound       ErrorType = "team_not_found"
	ErrorTypeTrackLimitExceeded ErrorType = "track_limit_exceeded"
	ErrorTypeDuplicateTeamVote  ErrorType = "duplicate_team_vote"
	ErrorTypeAuthentication     ErrorType = "authentication"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeRateLimited        ErrorType = "rate_limited"
	ErrorTypeInternal           ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// IsClientError reports whether the caller caused the error. Client errors are
// terminal and must not be retried.
func (e *AppError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// NewInvalidInputError creates a new malformed-request error
func NewInvalidInputError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewVerificationFailedError creates a new human-verification error
func NewVerificationFailedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeVerificationFailed,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewTeamNotFoundError creates a new unknown-team error
func NewTeamNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTeamNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewTrackLimitExceededError creates a new per-track budget error
func NewTrackLimitExceededError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTrackLimitExceeded,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewDuplicateTeamVoteError creates a new repeat-vote error
func NewDuplicateTeamVoteError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeDuplicateTeamVote,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// As extracts an *AppError from err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ErrorResponse is the JSON body written for every error. Error carries the
// human-readable message, Reason the machine-readable type.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Reason  ErrorType              `json:"reason"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes appErr as a JSON error response
func WriteJSON(w http.ResponseWriter, appErr *AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   appErr.Message,
		Reason:  appErr.Type,
		Details: appErr.Details,
	})
}
