package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reflexlab/reflex/internal/services"
)

// Store is the SQLite-backed persistence layer. It is the single
// source of truth: name uniqueness, exactly-once submission, and the
// delete cascade all ride on its transactional guarantees.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &Store{db: db}, nil
}

// Open opens (or creates) the database at path, applies migrations and
// returns a ready store.
func Open(path, migrationsDir string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	if err := RunMigrations(sqlDB, migrationsDir); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(sqlDB)
}

func (s *Store) Close() error { return s.db.Close() }

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func toNullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func toNullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// UpsertPlayer inserts the name or, when it already exists, reads the
// existing row back. Racing creators resolve to one row: the loser's
// no-op insert is followed by a fetch of the winner's id.
func (s *Store) UpsertPlayer(name string) (*services.Player, error) {
	if _, err := s.db.Exec(
		`INSERT INTO players (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name,
	); err != nil {
		return nil, fmt.Errorf("upsert player: %w", err)
	}
	var p services.Player
	var deleted int64
	err := s.db.QueryRow(
		`SELECT id, name, deleted FROM players WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &deleted)
	if err != nil {
		return nil, fmt.Errorf("fetch player: %w", err)
	}
	p.Deleted = deleted != 0
	return &p, nil
}

func (s *Store) InsertSession(sess *services.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, player_id, consent, completed, created_at) VALUES (?, ?, 0, 0, ?)`,
		sess.ID, sess.PlayerID, formatTime(sess.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// MarkConsent flips consent on an open session. Reports false when the
// session is unknown or already completed; consenting twice before
// completion is a no-op update and reports true.
func (s *Store) MarkConsent(sessionID string) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE sessions SET consent = 1 WHERE id = ? AND completed = 0`, sessionID,
	)
	if err != nil {
		return false, fmt.Errorf("mark consent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark consent rows: %w", err)
	}
	return n > 0, nil
}

// RecordScore completes the session and inserts its score atomically.
// Both writes commit together or roll back together, so a retried
// submit can never produce a duplicate score or a scoreless completed
// session.
func (s *Store) RecordScore(sc *services.Score, userAgent string, screenW, screenH *int) (ok bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			ok, err = false, fmt.Errorf("commit: %w", cerr)
		}
	}()

	var playerID int64
	err = tx.QueryRow(
		`SELECT player_id FROM sessions WHERE id = ? AND consent = 1 AND completed = 0`,
		sc.SessionID,
	).Scan(&playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}

	if _, err = tx.Exec(
		`UPDATE sessions SET completed = 1, user_agent = ?, screen_w = ?, screen_h = ? WHERE id = ?`,
		userAgent, toNullInt(screenW), toNullInt(screenH), sc.SessionID,
	); err != nil {
		return false, fmt.Errorf("complete session: %w", err)
	}

	if _, err = tx.Exec(
		`INSERT INTO scores (player_id, session_id, trial_idx, rt_ms_raw, rt_ms_clean) VALUES (?, ?, ?, ?, ?)`,
		playerID, sc.SessionID, sc.TrialIdx, sc.RTMsRaw, toNullFloat(sc.RTMsClean),
	); err != nil {
		return false, fmt.Errorf("insert score: %w", err)
	}

	sc.PlayerID = playerID
	return true, nil
}

// Leaderboard reads the derived view, fastest first.
func (s *Store) Leaderboard() ([]*services.LeaderboardEntry, error) {
	rows, err := s.db.Query(
		`SELECT player_id, name, best_ms, mean_ms, tries FROM leaderboard ORDER BY best_ms ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()
	var out []*services.LeaderboardEntry
	for rows.Next() {
		var e services.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.BestMs, &e.MeanMs, &e.Tries); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return out, nil
}

// SoftDeletePlayer marks the player and every score they own deleted,
// in one transaction. Nothing is physically removed.
func (s *Store) SoftDeletePlayer(playerID int64) (ok bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			ok, err = false, fmt.Errorf("commit: %w", cerr)
		}
	}()

	res, err := tx.Exec(`UPDATE players SET deleted = 1 WHERE id = ?`, playerID)
	if err != nil {
		return false, fmt.Errorf("delete player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete player rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err = tx.Exec(`UPDATE scores SET deleted = 1 WHERE player_id = ?`, playerID); err != nil {
		return false, fmt.Errorf("cascade scores: %w", err)
	}
	return true, nil
}

var (
	_ services.SessionStore = (*Store)(nil)
	_ services.ScoreStore   = (*Store)(nil)
)
