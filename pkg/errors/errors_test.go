package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		client bool
	}{
		{NewInvalidInputError("bad", nil), http.StatusBadRequest, true},
		{NewVerificationFailedError("bot"), http.StatusBadRequest, true},
		{NewTeamNotFoundError("gone"), http.StatusNotFound, true},
		{NewTrackLimitExceededError("full"), http.StatusBadRequest, true},
		{NewDuplicateTeamVoteError("again"), http.StatusBadRequest, true},
		{NewAuthenticationError("who"), http.StatusUnauthorized, true},
		{NewInternalError("boom", assert.AnError), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.client, tt.err.IsClientError())
		})
	}
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewDuplicateTeamVoteError("again"))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeDuplicateTeamVote, appErr.Type)

	_, ok = As(assert.AnError)
	assert.False(t, ok)
}

func TestInternalErrorUnwraps(t *testing.T) {
	err := NewInternalError("db down", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "db down")
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, NewTrackLimitExceededError("You have already used both votes for this track"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrorTypeTrackLimitExceeded, body.Reason)
	assert.Equal(t, "You have already used both votes for this track", body.Error)
}
