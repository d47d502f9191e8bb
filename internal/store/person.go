package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/ministryx/internal/model"
)

type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

const personCols = `p.id, p.family_id, p.first_name, p.last_name, p.classification_id, c.name, p.created_at, p.updated_at`

const personFrom = ` FROM persons p INNER JOIN classifications c ON p.classification_id = c.id`

func scanPerson(scanner interface{ Scan(...any) error }) (*model.Person, error) {
	var p model.Person
	err := scanner.Scan(&p.ID, &p.FamilyID, &p.FirstName, &p.LastName, &p.ClassificationID, &p.Classification, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PersonStore) Create(familyID int64, firstName, lastName string, classificationID int64) (*model.Person, error) {
	result, err := s.db.Exec(
		`INSERT INTO persons (family_id, first_name, last_name, classification_id) VALUES (?, ?, ?, ?)`,
		familyID, firstName, lastName, classificationID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PersonStore) GetByID(id int64) (*model.Person, error) {
	row := s.db.QueryRow(`SELECT `+personCols+personFrom+` WHERE p.id = ?`, id)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PersonStore) ListByFamily(familyID int64) ([]model.Person, error) {
	return s.list(`SELECT `+personCols+personFrom+` WHERE p.family_id = ? ORDER BY p.id`, familyID)
}

// ListVotingMembers returns the persons of a family whose classification is
// named Member, leaving out the staff non-attender and deceased codes.
func (s *PersonStore) ListVotingMembers(familyID int64) ([]model.Person, error) {
	return s.list(
		`SELECT `+personCols+personFrom+`
		 WHERE p.family_id = ? AND c.name = ? AND p.classification_id NOT IN (?, ?)
		 ORDER BY p.id`,
		familyID, model.ClassMemberName, model.ClassNonAttenderStaff, model.ClassDeceased,
	)
}

func (s *PersonStore) list(query string, args ...any) ([]model.Person, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, *p)
	}
	return persons, rows.Err()
}

func (s *PersonStore) UpdateClassification(id, classificationID int64) error {
	_, err := s.db.Exec(`UPDATE persons SET classification_id = ? WHERE id = ?`, classificationID, id)
	if err != nil {
		return fmt.Errorf("update person classification: %w", err)
	}
	return nil
}

func (s *PersonStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM persons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

func (s *PersonStore) ListClassifications() ([]model.Classification, error) {
	rows, err := s.db.Query(`SELECT id, name FROM classifications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}
	defer rows.Close()

	var classes []model.Classification
	for rows.Next() {
		var c model.Classification
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
