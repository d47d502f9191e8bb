package store

import (
	"testing"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
)

func setupPledgeTestDB(t *testing.T) (*PledgeStore, int64) {
	t.Helper()
	db := openTestDB(t)
	f, err := NewFamilyStore(db).Create("Okafor", "", "")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	return NewPledgeStore(db), f.ID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPledgeCreateAndGet(t *testing.T) {
	s, famID := setupPledgeTestDB(t)

	p, err := s.Create(famID, 29, 12500, model.PledgeKindPayment, day(2024, 3, 17))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.AmountCents != 12500 {
		t.Errorf("amount = %d, want 12500", p.AmountCents)
	}
	if !p.Date.Equal(day(2024, 3, 17)) {
		t.Errorf("date = %v, want 2024-03-17", p.Date)
	}
	if p.FiscalYearID != 29 {
		t.Errorf("fiscal_year_id = %d, want 29", p.FiscalYearID)
	}
}

func TestPledgeInvalidKind(t *testing.T) {
	s, famID := setupPledgeTestDB(t)

	if _, err := s.Create(famID, 29, 100, "Gift", day(2024, 1, 1)); err == nil {
		t.Error("expected error for invalid kind")
	}
}

func TestCountPaymentsWindow(t *testing.T) {
	s, famID := setupPledgeTestDB(t)

	entries := []struct {
		kind string
		date time.Time
	}{
		{model.PledgeKindPayment, day(2023, 12, 31)}, // before window
		{model.PledgeKindPayment, day(2024, 1, 1)},   // first day, inclusive
		{model.PledgeKindPledge, day(2024, 6, 1)},    // pledges never count
		{model.PledgeKindPayment, day(2024, 12, 31)}, // last day
		{model.PledgeKindPayment, day(2025, 1, 1)},   // end, exclusive
	}
	for _, e := range entries {
		if _, err := s.Create(famID, 29, 100, e.kind, e.date); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := s.CountPayments(famID, day(2024, 1, 1), day(2025, 1, 1))
	if err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestListPledgesByFamily(t *testing.T) {
	s, famID := setupPledgeTestDB(t)

	s.Create(famID, 29, 300, model.PledgeKindPayment, day(2024, 5, 1))
	s.Create(famID, 29, 100, model.PledgeKindPledge, day(2024, 1, 1))

	pledges, err := s.ListByFamily(famID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pledges) != 2 {
		t.Fatalf("got %d pledges, want 2", len(pledges))
	}
	if pledges[0].Kind != model.PledgeKindPledge {
		t.Errorf("first kind = %q, want earliest entry %q", pledges[0].Kind, model.PledgeKindPledge)
	}

	if err := s.Delete(pledges[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.GetByID(pledges[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
