package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session represents a counting session stored in the database.
type Session struct {
	ID        string
	Mode      string
	Threshold float64
	LeftReps  uint
	RightReps uint
	StartedAt time.Time
	EndedAt   *time.Time
}

// Active reports whether the session has not been finished.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, mode, threshold, left_reps, right_reps, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime

	if err := row.Scan(&s.ID, &s.Mode, &s.Threshold, &s.LeftReps, &s.RightReps, &s.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}

// Create inserts a new session. StartedAt defaults to now.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, mode, threshold, left_reps, right_reps, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Mode, s.Threshold, s.LeftReps, s.RightReps, s.StartedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves all sessions, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateCounts stores the latest per-limb totals of a session.
func (r *SessionRepository) UpdateCounts(id string, left, right uint) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET left_reps = ?, right_reps = ? WHERE id = ?`,
		left, right, id,
	)
	return checkAffected(result, err)
}

// Finish stores the final totals and end time of a session.
func (r *SessionRepository) Finish(id string, left, right uint, endedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET left_reps = ?, right_reps = ?, ended_at = ? WHERE id = ?`,
		left, right, endedAt, id,
	)
	return checkAffected(result, err)
}

// Delete removes a session and its events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return checkAffected(result, err)
}

func checkAffected(result sql.Result, err error) error {
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
