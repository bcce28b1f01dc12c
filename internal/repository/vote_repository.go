package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trackvote/internal/domain"
	"trackvote/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresSchema creates the teams and votes tables. The unique index on
// (voter_email, team_id) is what ultimately rejects concurrent repeat votes.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		track TEXT NOT NULL CHECK (track IN (
			'AI_ART_PREU', 'AI_ART_UPPERSEC',
			'AI_INNOVATION_PREU', 'AI_INNOVATION_UPPERSEC',
			'AI_TECHNICAL_PREU', 'AI_TECHNICAL_UPPERSEC'
		)),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		voter_email TEXT NOT NULL,
		team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT votes_voter_email_team_id_key UNIQUE (voter_email, team_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_team_id ON votes(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_created_at ON votes(created_at)`,
}

type postgresRepository struct {
	db *database.PostgresDB
}

// NewPostgresRepository creates a Store backed by PostgreSQL
func NewPostgresRepository(db *database.PostgresDB) Store {
	return &postgresRepository{db: db}
}

// Migrate creates the schema if it does not exist
func (r *postgresRepository) Migrate(ctx context.Context) error {
	for _, stmt := range PostgresSchema {
		if _, err := r.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (r *postgresRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

func (r *postgresRepository) Close() error {
	r.db.Close()
	return nil
}

// FindTeam gets a team by ID
func (r *postgresRepository) FindTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	var team domain.Team
	query := `SELECT id, name, track, created_at FROM teams WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, teamID).Scan(&team.ID, &team.Name, &team.Track, &team.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}

// CountVotesByTrack counts a voter's votes in a track
func (r *postgresRepository) CountVotesByTrack(ctx context.Context, email string, track domain.Track) (int, error) {
	return countVotesByTrack(ctx, r.db.Pool, email, track)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countVotesByTrack(ctx context.Context, q rowQuerier, email string, track domain.Track) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM votes v
		JOIN teams t ON t.id = v.team_id
		WHERE v.voter_email = $1 AND t.track = $2
	`
	if err := q.QueryRow(ctx, query, email, string(track)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count track votes: %w", err)
	}
	return count, nil
}

// CountVotesForTeam counts a voter's votes for one team
func (r *postgresRepository) CountVotesForTeam(ctx context.Context, email, teamID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM votes WHERE voter_email = $1 AND team_id = $2`

	if err := r.db.Pool.QueryRow(ctx, query, email, teamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count team votes: %w", err)
	}
	return count, nil
}

// CreateVote inserts a vote in its own transaction. With EnforceTrackLimit
// set, a transaction-scoped advisory lock keyed on (voter, track) serializes
// competing inserts so the recount below cannot race.
func (r *postgresRepository) CreateVote(ctx context.Context, nv domain.NewVote) (*domain.Vote, error) {
	vote := &domain.Vote{
		ID:         nv.ID,
		VoterEmail: nv.VoterEmail,
		TeamID:     nv.TeamID,
	}

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if nv.EnforceTrackLimit > 0 {
			lockKey := nv.VoterEmail + "|" + string(nv.Track)
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
				return fmt.Errorf("failed to acquire track lock: %w", err)
			}
			count, err := countVotesByTrack(ctx, tx, nv.VoterEmail, nv.Track)
			if err != nil {
				return err
			}
			if count >= nv.EnforceTrackLimit {
				return domain.ErrTrackLimitReached
			}
		}

		query := `
			INSERT INTO votes (id, voter_email, team_id)
			VALUES ($1, $2, $3)
			RETURNING created_at
		`
		return tx.QueryRow(ctx, query, vote.ID, vote.VoterEmail, vote.TeamID).Scan(&vote.CreatedAt)
	})
	if err != nil {
		return nil, translatePgError(err)
	}

	return vote, nil
}

// translatePgError maps constraint violations onto domain errors
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrDuplicateVote
		case pgForeignKeyViolation:
			return domain.ErrTeamNotFound
		}
	}
	if errors.Is(err, domain.ErrTrackLimitReached) {
		return err
	}
	return fmt.Errorf("failed to create vote: %w", err)
}

// GetVote gets a vote joined with its team
func (r *postgresRepository) GetVote(ctx context.Context, voteID string) (*domain.VoteWithTeam, error) {
	var v domain.VoteWithTeam
	query := `
		SELECT v.id, v.voter_email, v.team_id, v.created_at, t.name, t.track
		FROM votes v
		JOIN teams t ON t.id = v.team_id
		WHERE v.id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, voteID).Scan(
		&v.ID, &v.VoterEmail, &v.TeamID, &v.CreatedAt, &v.TeamName, &v.Track,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &v, nil
}

// DeleteVote removes a vote by ID
func (r *postgresRepository) DeleteVote(ctx context.Context, voteID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM votes WHERE id = $1`, voteID)
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListVotes returns the filtered vote log in acceptance order
func (r *postgresRepository) ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.VoteWithTeam, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Track != "" {
		args = append(args, string(filter.Track))
		conds = append(conds, fmt.Sprintf("t.track = $%d", len(args)))
	}
	if filter.TeamID != "" {
		args = append(args, filter.TeamID)
		conds = append(conds, fmt.Sprintf("v.team_id = $%d", len(args)))
	}
	if needle := strings.TrimSpace(filter.EmailContains); needle != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(needle))+"%")
		conds = append(conds, fmt.Sprintf(`v.voter_email ILIKE $%d ESCAPE '\'`, len(args)))
	}

	query := `
		SELECT v.id, v.voter_email, v.team_id, v.created_at, t.name, t.track
		FROM votes v
		JOIN teams t ON t.id = v.team_id
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY v.seq ASC"

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := make([]domain.VoteWithTeam, 0)
	for rows.Next() {
		var v domain.VoteWithTeam
		if err := rows.Scan(&v.ID, &v.VoterEmail, &v.TeamID, &v.CreatedAt, &v.TeamName, &v.Track); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

// CreateTeam inserts a team
func (r *postgresRepository) CreateTeam(ctx context.Context, team *domain.Team) error {
	query := `INSERT INTO teams (id, name, track) VALUES ($1, $2, $3) RETURNING created_at`

	err := r.db.Pool.QueryRow(ctx, query, team.ID, team.Name, string(team.Track)).Scan(&team.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateTeamName
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// ListTeamsWithVoteCounts returns all teams with their vote totals
func (r *postgresRepository) ListTeamsWithVoteCounts(ctx context.Context) ([]domain.TeamWithVoteCount, error) {
	query := `
		SELECT t.id, t.name, t.track, t.created_at, COUNT(v.seq)
		FROM teams t
		LEFT JOIN votes v ON v.team_id = t.id
		GROUP BY t.id, t.name, t.track, t.created_at
		ORDER BY t.name ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]domain.TeamWithVoteCount, 0)
	for rows.Next() {
		var t domain.TeamWithVoteCount
		if err := rows.Scan(&t.ID, &t.Name, &t.Track, &t.CreatedAt, &t.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
