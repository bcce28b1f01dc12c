package domain

import (
	"errors"
	"strings"
	"time"
)

// TrackVoteLimit is the number of distinct teams a voter may vote for in one track
const TrackVoteLimit = 2

// Storage-level outcomes the admission logic translates into rejections
var (
	// ErrDuplicateVote is returned when the (voter_email, team_id) unique
	// constraint rejects an insert
	ErrDuplicateVote = errors.New("vote already exists for this voter and team")
	// ErrTrackLimitReached is returned by a strict insert that found the
	// voter's track budget already spent
	ErrTrackLimitReached = errors.New("track vote limit reached")
	// ErrTeamNotFound is returned when a vote references a team that no
	// longer exists at insert time
	ErrTeamNotFound = errors.New("team not found")
	// ErrDuplicateTeamName is returned when a team name is already taken
	ErrDuplicateTeamName = errors.New("team name already exists")
)

// Vote represents an accepted vote
type Vote struct {
	ID         string    `json:"id"`
	VoterEmail string    `json:"voter_email"`
	TeamID     string    `json:"team_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteWithTeam is a vote joined with its team, as read back for aggregation
type VoteWithTeam struct {
	Vote
	TeamName string `json:"team_name"`
	Track    Track  `json:"track"`
}

// NewVote carries the data of an insert. When EnforceTrackLimit is positive
// the store re-counts the voter's votes in Track inside the insert
// transaction and fails with ErrTrackLimitReached at or above the limit.
type NewVote struct {
	ID                string
	VoterEmail        string
	TeamID            string
	Track             Track
	EnforceTrackLimit int
}

// VoteRequest represents a vote submission
type VoteRequest struct {
	TeamID            string `json:"teamId" validate:"required"`
	VoterEmail        string `json:"voterEmail" validate:"required,email,max=320"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// VoteAccepted is returned after a successful admission. UpdatedCountForTrack
// is advisory: it is meant for the voter's remaining-votes display only.
type VoteAccepted struct {
	Accepted             bool      `json:"accepted"`
	VoteID               string    `json:"voteId"`
	TeamID               string    `json:"teamId"`
	TeamName             string    `json:"teamName"`
	Track                Track     `json:"track"`
	UpdatedCountForTrack int       `json:"updatedCountForTrack"`
	CreatedAt            time.Time `json:"createdAt"`
}

// VoteDeleted is returned after an administrative deletion
type VoteDeleted struct {
	VoteID               string `json:"voteId"`
	VoterEmail           string `json:"voterEmail"`
	Track                Track  `json:"track"`
	UpdatedCountForTrack int    `json:"updatedCountForTrack"`
}

// TrackVoteCount is the authoritative number of votes a voter has in a track
type TrackVoteCount struct {
	Email string `json:"email"`
	Track Track  `json:"track"`
	Count int    `json:"count"`
}

// NormalizeEmail returns the canonical form used for storage and matching
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
