package container

import (
	"context"
	"testing"
	"time"

	"trackvote/internal/config"
	"trackvote/internal/domain"
	"trackvote/pkg/database"
	"trackvote/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		DatabaseDriver:    config.DriverSQLite,
		SQLitePath:        database.MemoryPath,
		JWTSecret:         "test-secret",
		AdminTokenTTL:     time.Hour,
		DashboardCacheTTL: time.Minute,
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		mutate      func(cfg *config.Config)
		expectRedis bool
		expectError bool
	}{
		{
			name:        "Container with Redis configured",
			mutate:      func(cfg *config.Config) { cfg.RedisURL = "redis://" + mr.Addr() },
			expectRedis: true,
		},
		{
			name:        "Container without Redis configured",
			mutate:      func(cfg *config.Config) {},
			expectRedis: false,
		},
		{
			name:        "Container with invalid Redis URL",
			mutate:      func(cfg *config.Config) { cfg.RedisURL = "invalid://redis-url" },
			expectRedis: false, // Redis client initialization fails but container creation succeeds
		},
		{
			name:        "Unknown storage driver",
			mutate:      func(cfg *config.Config) { cfg.DatabaseDriver = "oracle" },
			expectError: true,
		},
		{
			name:        "Postgres without URL",
			mutate:      func(cfg *config.Config) { cfg.DatabaseDriver = config.DriverPostgres },
			expectError: true,
		},
		{
			name: "Captcha without secret",
			mutate: func(cfg *config.Config) {
				cfg.CaptchaEnabled = true
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			c, err := New(context.Background(), cfg, logger.NewNop())
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, c)
			t.Cleanup(func() {
				if c.RedisClient != nil {
					_ = c.RedisClient.Close()
				}
				_ = c.Store.Close()
			})

			assert.Equal(t, tt.expectRedis, c.HasRedis())
			assert.Equal(t, tt.expectRedis, c.Cache.Enabled())
			assert.NotNil(t, c.Services.Votes)
			assert.NotNil(t, c.Services.Results)
			assert.NotNil(t, c.Services.Teams)
			assert.NotNil(t, c.Auth)
		})
	}
}

func TestNew_ServicesShareStore(t *testing.T) {
	c, err := New(context.Background(), testConfig(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Store.Close() })

	ctx := context.Background()
	team, err := c.Services.Teams.CreateTeam(ctx, domain.CreateTeamRequest{Name: "Alpha", Track: domain.TrackArtPreU})
	require.NoError(t, err)

	_, err = c.Services.Votes.SubmitVote(ctx, domain.VoteRequest{TeamID: team.ID, VoterEmail: "a@example.com"}, "127.0.0.1")
	require.NoError(t, err)

	total, err := c.Services.Results.TotalVotes(ctx, domain.VoteFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
