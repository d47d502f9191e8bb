package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, title, description, start_time, end_time, all_day, contact_person_id, location, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var allDayInt int
	var contactID sql.NullInt64

	if err := scanner.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &allDayInt, &contactID, &e.Location, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}

	e.AllDay = allDayInt != 0
	if contactID.Valid {
		e.ContactPersonID = &contactID.Int64
	}
	return &e, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *EventStore) Create(title, description string, startTime, endTime time.Time, allDay bool, contactPersonID *int64, location string) (*model.CalendarEvent, error) {
	result, err := s.db.Exec(
		`INSERT INTO calendar_events (title, description, start_time, end_time, all_day, contact_person_id, location)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title, description, startTime.UTC(), endTime.UTC(), boolInt(allDay), nullableID(contactPersonID), location,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

func (s *EventStore) ListByDateRange(start, end time.Time) ([]model.CalendarEvent, error) {
	return s.list(
		`SELECT `+eventCols+`
		 FROM calendar_events
		 WHERE start_time < ? AND end_time > ?
		 ORDER BY all_day DESC, start_time ASC`,
		end.UTC(), start.UTC(),
	)
}

// ListStartingBetween returns timed events whose start falls in [from, to).
// All-day events have no start hour to remind ahead of and are skipped.
func (s *EventStore) ListStartingBetween(from, to time.Time) ([]model.CalendarEvent, error) {
	return s.list(
		`SELECT `+eventCols+`
		 FROM calendar_events
		 WHERE all_day = 0 AND start_time >= ? AND start_time < ?
		 ORDER BY start_time ASC`,
		from.UTC(), to.UTC(),
	)
}

func (s *EventStore) list(query string, args ...any) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(id int64, title, description string, startTime, endTime time.Time, allDay bool, contactPersonID *int64, location string) (*model.CalendarEvent, error) {
	_, err := s.db.Exec(
		`UPDATE calendar_events
		 SET title = ?, description = ?, start_time = ?, end_time = ?, all_day = ?, contact_person_id = ?, location = ?
		 WHERE id = ?`,
		title, description, startTime.UTC(), endTime.UTC(), boolInt(allDay), nullableID(contactPersonID), location, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
