package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyDashboard() string {
	return kb.BuildKey(KeyDashboard)
}

// KeyResults returns the ranked-results key for a track; an empty track
// means every track
func (kb *KeyBuilder) KeyResults(track string) string {
	if track == "" {
		track = "all"
	}
	return kb.BuildKey(fmt.Sprintf(KeyResults, track))
}

func (kb *KeyBuilder) KeyTeamsSummary() string {
	return kb.BuildKey(KeyTeamsSummary)
}

// KeyPattern matches every key this service writes in the environment
func (kb *KeyBuilder) KeyPattern() string {
	return kb.BuildKey(KeyPattern)
}
