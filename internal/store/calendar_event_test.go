package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/ministryx/internal/database"
	"github.com/dukerupert/ministryx/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestDB(t *testing.T) *EventStore {
	t.Helper()
	return NewEventStore(openTestDB(t))
}

func TestCreateAndGetByID(t *testing.T) {
	s := setupTestDB(t)

	start := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC)

	event, err := s.Create("Elders Meeting", "Monthly", start, end, false, nil, "Fellowship Hall")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.Title != "Elders Meeting" {
		t.Errorf("title = %q, want %q", event.Title, "Elders Meeting")
	}
	if event.Location != "Fellowship Hall" {
		t.Errorf("location = %q, want %q", event.Location, "Fellowship Hall")
	}
	if event.AllDay {
		t.Error("all_day should be false")
	}
	if event.ContactPersonID != nil {
		t.Errorf("contact_person_id should be nil, got %v", *event.ContactPersonID)
	}

	got, err := s.GetByID(event.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Title != "Elders Meeting" {
		t.Errorf("got title = %q, want %q", got.Title, "Elders Meeting")
	}
	if !got.StartTime.Equal(start) {
		t.Errorf("start = %v, want %v", got.StartTime, start)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := setupTestDB(t)

	got, err := s.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestListByDateRange(t *testing.T) {
	s := setupTestDB(t)

	s.Create("Day 1 Event", "", time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC), time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC), false, nil, "")
	s.Create("Day 2 Event", "", time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC), time.Date(2026, 2, 6, 10, 0, 0, 0, time.UTC), false, nil, "")
	s.Create("Day 3 Event", "", time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC), time.Date(2026, 2, 7, 10, 0, 0, 0, time.UTC), false, nil, "")

	events, err := s.ListByDateRange(time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Title != "Day 1 Event" {
		t.Errorf("first event = %q, want %q", events[0].Title, "Day 1 Event")
	}
	if events[1].Title != "Day 2 Event" {
		t.Errorf("second event = %q, want %q", events[1].Title, "Day 2 Event")
	}
}

func TestListByDateRangeAllDayFirst(t *testing.T) {
	s := setupTestDB(t)

	start := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)

	s.Create("Morning Prayer", "", time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC), time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC), false, nil, "")
	s.Create("Ash Wednesday", "", start, end, true, nil, "")

	events, err := s.ListByDateRange(start, end)
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Title != "Ash Wednesday" {
		t.Errorf("first event = %q, want all-day event %q", events[0].Title, "Ash Wednesday")
	}
}

func TestUpdate(t *testing.T) {
	s := setupTestDB(t)

	event, err := s.Create("Original Title", "", time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC), time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC), false, nil, "")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	updated, err := s.Update(event.ID, "Updated Title", "Added desc", time.Date(2026, 2, 5, 14, 0, 0, 0, time.UTC), time.Date(2026, 2, 5, 15, 30, 0, 0, time.UTC), true, nil, "Sanctuary")
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if updated.Title != "Updated Title" {
		t.Errorf("title = %q, want %q", updated.Title, "Updated Title")
	}
	if updated.Location != "Sanctuary" {
		t.Errorf("location = %q, want %q", updated.Location, "Sanctuary")
	}
	if !updated.AllDay {
		t.Error("all_day should be true after update")
	}
}

func TestDelete(t *testing.T) {
	s := setupTestDB(t)

	event, err := s.Create("To Delete", "", time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC), time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC), false, nil, "")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := s.Delete(event.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}

	got, err := s.GetByID(event.ID)
	if err != nil {
		t.Fatalf("get by id after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestContactPersonDeleteSetsNull(t *testing.T) {
	db := openTestDB(t)
	s := NewEventStore(db)
	families := NewFamilyStore(db)
	persons := NewPersonStore(db)

	fam, err := families.Create("Baker", "", "")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	p, err := persons.Create(fam.ID, "Bob", "Baker", model.ClassMember)
	if err != nil {
		t.Fatalf("create person: %v", err)
	}

	event, err := s.Create("Youth Group", "", time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC), time.Date(2026, 2, 5, 11, 0, 0, 0, time.UTC), false, &p.ID, "")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.ContactPersonID == nil || *event.ContactPersonID != p.ID {
		t.Fatalf("contact_person_id = %v, want %d", event.ContactPersonID, p.ID)
	}

	if err := persons.Delete(p.ID); err != nil {
		t.Fatalf("delete person: %v", err)
	}

	got, err := s.GetByID(event.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil {
		t.Fatal("event should still exist after person deletion")
	}
	if got.ContactPersonID != nil {
		t.Errorf("contact_person_id should be nil after person deletion, got %v", *got.ContactPersonID)
	}
}

func TestListStartingBetween(t *testing.T) {
	s := setupTestDB(t)
	base := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	s.Create("Before", "", base.Add(-time.Minute), base.Add(time.Hour), false, nil, "")
	s.Create("Service", "", base.Add(30*time.Minute), base.Add(2*time.Hour), false, nil, "")
	s.Create("Potluck", "", base, base.Add(24*time.Hour), true, nil, "")
	s.Create("Later", "", base.Add(time.Hour), base.Add(2*time.Hour), false, nil, "")

	events, err := s.ListStartingBetween(base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Service" {
		t.Errorf("events = %+v, want only Service", events)
	}
}
