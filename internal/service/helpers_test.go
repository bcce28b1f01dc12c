package service

import (
	"context"
	"errors"
	"testing"

	"trackvote/internal/domain"
	"trackvote/internal/repository"
	"trackvote/pkg/database"
	apperrors "trackvote/pkg/errors"
	"trackvote/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(ctx, database.MemoryPath)
	require.NoError(t, err)

	store := repository.NewSQLiteRepository(db)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *CacheService) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewCacheService(client, redis.TTLDashboard, zap.NewNop())
}

func addTeam(t *testing.T, store repository.Store, id, name string, track domain.Track) {
	t.Helper()
	require.NoError(t, store.CreateTeam(context.Background(), &domain.Team{ID: id, Name: name, Track: track}))
}

func requireAppError(t *testing.T, err error, want apperrors.ErrorType) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected *AppError, got %T: %v", err, err)
	require.Equal(t, want, appErr.Type, appErr.Message)
	return appErr
}

var errStorageDown = errors.New("storage unavailable")

// flakyStore fails the named operation and delegates everything else.
// createsBeforeFail lets that many create_team calls through first.
type flakyStore struct {
	repository.Store
	failOn            string
	createsBeforeFail int
}

func (f *flakyStore) FindTeam(ctx context.Context, id string) (*domain.Team, error) {
	if f.failOn == "find_team" {
		return nil, errStorageDown
	}
	return f.Store.FindTeam(ctx, id)
}

func (f *flakyStore) CreateVote(ctx context.Context, nv domain.NewVote) (*domain.Vote, error) {
	if f.failOn == "create_vote" {
		return nil, errStorageDown
	}
	return f.Store.CreateVote(ctx, nv)
}

func (f *flakyStore) ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.VoteWithTeam, error) {
	if f.failOn == "list_votes" {
		return nil, errStorageDown
	}
	return f.Store.ListVotes(ctx, filter)
}

func (f *flakyStore) CreateTeam(ctx context.Context, team *domain.Team) error {
	if f.failOn == "create_team" {
		if f.createsBeforeFail <= 0 {
			return errStorageDown
		}
		f.createsBeforeFail--
	}
	return f.Store.CreateTeam(ctx, team)
}
