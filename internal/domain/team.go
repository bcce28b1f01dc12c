package domain

import "time"

// Track is the competition category a team belongs to. Vote budgets are
// counted per voter per track.
type Track string

const (
	TrackArtPreU            Track = "AI_ART_PREU"
	TrackArtUpperSec        Track = "AI_ART_UPPERSEC"
	TrackInnovationPreU     Track = "AI_INNOVATION_PREU"
	TrackInnovationUpperSec Track = "AI_INNOVATION_UPPERSEC"
	TrackTechnicalPreU      Track = "AI_TECHNICAL_PREU"
	TrackTechnicalUpperSec  Track = "AI_TECHNICAL_UPPERSEC"
)

// Tracks lists every valid track in display order
var Tracks = []Track{
	TrackArtPreU,
	TrackArtUpperSec,
	TrackInnovationPreU,
	TrackInnovationUpperSec,
	TrackTechnicalPreU,
	TrackTechnicalUpperSec,
}

// Valid reports whether t is one of the known tracks
func (t Track) Valid() bool {
	for _, known := range Tracks {
		if t == known {
			return true
		}
	}
	return false
}

// Team represents a competing team
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Track     Track     `json:"track"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamWithVoteCount is a team annotated with its total number of votes
type TeamWithVoteCount struct {
	Team
	VoteCount int `json:"vote_count"`
}

// CreateTeamRequest represents a single team creation
type CreateTeamRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Track Track  `json:"track" validate:"required,track"`
}

// BulkCreateTeamsRequest represents a batch team creation
type BulkCreateTeamsRequest struct {
	Teams []CreateTeamRequest `json:"teams" validate:"required,min=1,dive"`
}

// TeamCreateResult is the outcome of one item in a bulk creation
type TeamCreateResult struct {
	Success bool              `json:"success"`
	Team    *Team             `json:"team,omitempty"`
	Request CreateTeamRequest `json:"request"`
	Error   string            `json:"error,omitempty"`
}

// BulkCreateSummary counts the outcomes of a bulk creation
type BulkCreateSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Errors  int `json:"errors"`
}

// BulkCreateTeamsResponse is returned by a bulk creation
type BulkCreateTeamsResponse struct {
	Message string             `json:"message"`
	Results []TeamCreateResult `json:"results"`
	Summary BulkCreateSummary  `json:"summary"`
}
