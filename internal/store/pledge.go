package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
)

// pledgeDateLayout is the on-disk form of pledge dates. Lexical order of the
// column matches chronological order, so range filters compare strings.
const pledgeDateLayout = "2006-01-02"

type PledgeStore struct {
	db *sql.DB
}

func NewPledgeStore(db *sql.DB) *PledgeStore {
	return &PledgeStore{db: db}
}

func scanPledge(scanner interface{ Scan(...any) error }) (*model.Pledge, error) {
	var p model.Pledge
	var date string
	if err := scanner.Scan(&p.ID, &p.FamilyID, &p.FiscalYearID, &p.AmountCents, &p.Kind, &date, &p.CreatedAt); err != nil {
		return nil, err
	}
	d, err := time.Parse(pledgeDateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse pledge date %q: %w", date, err)
	}
	p.Date = d
	return &p, nil
}

const pledgeCols = `id, family_id, fiscal_year_id, amount_cents, kind, date, created_at`

func (s *PledgeStore) Create(familyID int64, fiscalYearID int, amountCents int64, kind string, date time.Time) (*model.Pledge, error) {
	if kind != model.PledgeKindPledge && kind != model.PledgeKindPayment {
		return nil, fmt.Errorf("invalid pledge kind %q", kind)
	}
	result, err := s.db.Exec(
		`INSERT INTO pledges (family_id, fiscal_year_id, amount_cents, kind, date) VALUES (?, ?, ?, ?, ?)`,
		familyID, fiscalYearID, amountCents, kind, date.Format(pledgeDateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert pledge: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PledgeStore) GetByID(id int64) (*model.Pledge, error) {
	row := s.db.QueryRow(`SELECT `+pledgeCols+` FROM pledges WHERE id = ?`, id)
	p, err := scanPledge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pledge: %w", err)
	}
	return p, nil
}

func (s *PledgeStore) ListByFamily(familyID int64) ([]model.Pledge, error) {
	rows, err := s.db.Query(`SELECT `+pledgeCols+` FROM pledges WHERE family_id = ? ORDER BY date, id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list pledges: %w", err)
	}
	defer rows.Close()

	var pledges []model.Pledge
	for rows.Next() {
		p, err := scanPledge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pledge: %w", err)
		}
		pledges = append(pledges, *p)
	}
	return pledges, rows.Err()
}

// CountPayments counts the payments of a family dated within [start, end).
func (s *PledgeStore) CountPayments(familyID int64, start, end time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(id) FROM pledges
		 WHERE family_id = ? AND kind = ? AND date >= ? AND date < ?`,
		familyID, model.PledgeKindPayment, start.Format(pledgeDateLayout), end.Format(pledgeDateLayout),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return count, nil
}

func (s *PledgeStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM pledges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pledge: %w", err)
	}
	return nil
}
