package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackvote/internal/domain"
	"trackvote/pkg/database"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteSchema mirrors PostgresSchema. Timestamps are unix milliseconds.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		track TEXT NOT NULL CHECK (track IN (
			'AI_ART_PREU', 'AI_ART_UPPERSEC',
			'AI_INNOVATION_PREU', 'AI_INNOVATION_UPPERSEC',
			'AI_TECHNICAL_PREU', 'AI_TECHNICAL_UPPERSEC'
		)),
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		voter_email TEXT NOT NULL,
		team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		created_at INTEGER NOT NULL,
		UNIQUE (voter_email, team_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_team_id ON votes(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_created_at ON votes(created_at)`,
}

type sqliteRepository struct {
	db  *database.SQLiteDB
	now func() time.Time
}

// NewSQLiteRepository creates a Store backed by SQLite
func NewSQLiteRepository(db *database.SQLiteDB) Store {
	return &sqliteRepository{db: db, now: time.Now}
}

func (r *sqliteRepository) Migrate(ctx context.Context) error {
	for _, stmt := range SQLiteSchema {
		if _, err := r.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (r *sqliteRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

func (r *sqliteRepository) Close() error {
	return r.db.Close()
}

func (r *sqliteRepository) FindTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	var (
		team      domain.Team
		createdAt int64
	)
	query := `SELECT id, name, track, created_at FROM teams WHERE id = ?`

	err := r.db.DB.QueryRowContext(ctx, query, teamID).Scan(&team.ID, &team.Name, &team.Track, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	team.CreatedAt = fromMillis(createdAt)

	return &team, nil
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *sqliteRepository) CountVotesByTrack(ctx context.Context, email string, track domain.Track) (int, error) {
	return sqliteCountVotesByTrack(ctx, r.db.DB, email, track)
}

func sqliteCountVotesByTrack(ctx context.Context, q sqlQuerier, email string, track domain.Track) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM votes v
		JOIN teams t ON t.id = v.team_id
		WHERE v.voter_email = ? AND t.track = ?
	`
	if err := q.QueryRowContext(ctx, query, email, string(track)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count track votes: %w", err)
	}
	return count, nil
}

func (r *sqliteRepository) CountVotesForTeam(ctx context.Context, email, teamID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM votes WHERE voter_email = ? AND team_id = ?`

	if err := r.db.DB.QueryRowContext(ctx, query, email, teamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count team votes: %w", err)
	}
	return count, nil
}

// CreateVote inserts a vote. The handle holds a single connection, so the
// strict recount and the insert run without interleaving writers.
func (r *sqliteRepository) CreateVote(ctx context.Context, nv domain.NewVote) (*domain.Vote, error) {
	vote := &domain.Vote{
		ID:         nv.ID,
		VoterEmail: nv.VoterEmail,
		TeamID:     nv.TeamID,
		CreatedAt:  r.now().UTC().Truncate(time.Millisecond),
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if nv.EnforceTrackLimit > 0 {
			count, err := sqliteCountVotesByTrack(ctx, tx, nv.VoterEmail, nv.Track)
			if err != nil {
				return err
			}
			if count >= nv.EnforceTrackLimit {
				return domain.ErrTrackLimitReached
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO votes (id, voter_email, team_id, created_at) VALUES (?, ?, ?, ?)`,
			vote.ID, vote.VoterEmail, vote.TeamID, toMillis(vote.CreatedAt),
		)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrTrackLimitReached) {
			return nil, err
		}
		switch sqliteConstraint(err) {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return nil, domain.ErrDuplicateVote
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create vote: %w", err)
	}

	return vote, nil
}

// sqliteConstraint returns the extended result code of a constraint
// failure, or 0 for any other error
func sqliteConstraint(err error) int {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0
	}
	code := sqliteErr.Code()
	if code&0xff != sqlite3lib.SQLITE_CONSTRAINT {
		return 0
	}
	if code == sqlite3lib.SQLITE_CONSTRAINT {
		// Some builds only report the primary code; fall back to the message.
		msg := strings.ToLower(sqliteErr.Error())
		switch {
		case strings.Contains(msg, "foreign key"):
			return sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
		case strings.Contains(msg, "unique"):
			return sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
		}
	}
	return code
}

func (r *sqliteRepository) GetVote(ctx context.Context, voteID string) (*domain.VoteWithTeam, error) {
	query := `
		SELECT v.id, v.voter_email, v.team_id, v.created_at, t.name, t.track
		FROM votes v
		JOIN teams t ON t.id = v.team_id
		WHERE v.id = ?
	`

	v, err := scanSQLiteVote(r.db.DB.QueryRowContext(ctx, query, voteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return v, nil
}

func (r *sqliteRepository) DeleteVote(ctx context.Context, voteID string) (bool, error) {
	res, err := r.db.DB.ExecContext(ctx, `DELETE FROM votes WHERE id = ?`, voteID)
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteRepository) ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.VoteWithTeam, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Track != "" {
		conds = append(conds, "t.track = ?")
		args = append(args, string(filter.Track))
	}
	if filter.TeamID != "" {
		conds = append(conds, "v.team_id = ?")
		args = append(args, filter.TeamID)
	}
	if needle := strings.TrimSpace(filter.EmailContains); needle != "" {
		conds = append(conds, `lower(v.voter_email) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(needle))+"%")
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

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := make([]domain.VoteWithTeam, 0)
	for rows.Next() {
		v, err := scanSQLiteVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteVote(s scanner) (*domain.VoteWithTeam, error) {
	var (
		v         domain.VoteWithTeam
		createdAt int64
	)
	if err := s.Scan(&v.ID, &v.VoterEmail, &v.TeamID, &createdAt, &v.TeamName, &v.Track); err != nil {
		return nil, err
	}
	v.CreatedAt = fromMillis(createdAt)
	return &v, nil
}

func (r *sqliteRepository) CreateTeam(ctx context.Context, team *domain.Team) error {
	team.CreatedAt = r.now().UTC().Truncate(time.Millisecond)

	_, err := r.db.DB.ExecContext(ctx,
		`INSERT INTO teams (id, name, track, created_at) VALUES (?, ?, ?, ?)`,
		team.ID, team.Name, string(team.Track), toMillis(team.CreatedAt),
	)
	if err != nil {
		switch sqliteConstraint(err) {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return domain.ErrDuplicateTeamName
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *sqliteRepository) ListTeamsWithVoteCounts(ctx context.Context) ([]domain.TeamWithVoteCount, error) {
	query := `
		SELECT t.id, t.name, t.track, t.created_at, COUNT(v.seq)
		FROM teams t
		LEFT JOIN votes v ON v.team_id = t.id
		GROUP BY t.id, t.name, t.track, t.created_at
		ORDER BY t.name ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]domain.TeamWithVoteCount, 0)
	for rows.Next() {
		var (
			t         domain.TeamWithVoteCount
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Track, &createdAt, &t.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		t.CreatedAt = fromMillis(createdAt)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
