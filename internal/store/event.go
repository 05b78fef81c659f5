package store

import (
	"database/sql"
	"time"
)

// Event is a completed repetition recorded during a session.
type Event struct {
	ID        int64
	SessionID string
	Limb      string
	Rep       uint
	Signal    float64
	Frame     int
	CreatedAt time.Time
}

// EventRepository provides access to rep events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts an event and sets its ID. CreatedAt defaults to now.
func (r *EventRepository) Create(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO rep_events (session_id, limb, rep, signal, frame, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Limb, e.Rep, e.Signal, e.Frame, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListBySession retrieves the events of a session in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]Event, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, limb, rep, signal, frame, created_at
		 FROM rep_events
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Limb, &e.Rep, &e.Signal, &e.Frame, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
