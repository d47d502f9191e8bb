package report

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dukerupert/ministryx/internal/fiscal"
	"github.com/dukerupert/ministryx/internal/model"
)

type Member struct {
	FirstName      string
	LastName       string
	Classification string
}

// Family is a family that passed the donation filter, with only its voting
// members.
type Family struct {
	ID      int64
	Name    string
	Members []Member
}

// Filter selects voting families. RequiredDonationYears of zero disables
// the donation check.
type Filter struct {
	FiscalYearID          int
	RequiredDonationYears int
}

// DataAccessError wraps a failed record fetch during report generation.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("report data access: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// IsDataAccess reports whether err came from a failed record fetch.
func IsDataAccess(err error) bool {
	var dae *DataAccessError
	return errors.As(err, &dae)
}

type FamilyLister interface {
	List() ([]model.Family, error)
}

type MemberLister interface {
	ListVotingMembers(familyID int64) ([]model.Person, error)
}

type PaymentCounter interface {
	CountPayments(familyID int64, start, end time.Time) (int, error)
}

// Source bundles the record fetches the voting report needs.
type Source struct {
	Families FamilyLister
	Members  MemberLister
	Payments PaymentCounter
}

// SelectVotingFamilies yields families in name order, each restricted to
// its voting members. With a donation requirement, only families with a
// payment inside the fiscal window are yielded. Members and payments are
// fetched per family as the sequence is consumed. The first fetch error is
// yielded as a *DataAccessError and ends the sequence.
func SelectVotingFamilies(src Source, filter Filter, fyMonth time.Month) iter.Seq2[Family, error] {
	return func(yield func(Family, error) bool) {
		families, err := src.Families.List()
		if err != nil {
			yield(Family{}, &DataAccessError{Op: "list families", Err: err})
			return
		}

		window := fiscal.DonationWindow(filter.FiscalYearID, filter.RequiredDonationYears, fyMonth)
		for _, f := range families {
			if filter.RequiredDonationYears > 0 {
				n, err := src.Payments.CountPayments(f.ID, window.Start, window.End)
				if err != nil {
					yield(Family{}, &DataAccessError{Op: fmt.Sprintf("count payments of family %d", f.ID), Err: err})
					return
				}
				if n == 0 {
					continue
				}
			}

			persons, err := src.Members.ListVotingMembers(f.ID)
			if err != nil {
				yield(Family{}, &DataAccessError{Op: fmt.Sprintf("list members of family %d", f.ID), Err: err})
				return
			}

			fam := Family{ID: f.ID, Name: f.Name, Members: make([]Member, 0, len(persons))}
			for _, p := range persons {
				fam.Members = append(fam.Members, Member{
					FirstName:      p.FirstName,
					LastName:       p.LastName,
					Classification: p.Classification,
				})
			}
			if !yield(fam, nil) {
				return
			}
		}
	}
}

// VotingMembers lays out the voting members report.
type VotingMembers struct {
	Title string
	LeftX float64
}

// TotalLine is the closing line of the report.
func TotalLine(count int) string {
	return fmt.Sprintf("Number of Voting Members: %d", count)
}

// Write draws the title, each family name with its members in an indented
// column starting on the name's row, and the total. It returns the number of members written.
// On a fetch error Write stops and returns the error; what was drawn stays
// drawn.
func (r VotingMembers) Write(s Surface, families iter.Seq2[Family, error]) (int, error) {
	c := NewCursor()

	c.WriteAt(s, r.LeftX, r.Title)
	c.Advance(TitleAdvance)

	count := 0
	for fam, err := range families {
		if err != nil {
			return count, err
		}

		c.WriteAt(s, r.LeftX, fam.Name)
		if len(fam.Members) == 0 {
			c.Advance(LineHeight)
		}
		for _, m := range fam.Members {
			c.WriteLine(s, r.LeftX+MemberIndent, m.FirstName+" "+m.LastName)
			c.MaybeBreak(s)
			count++
		}
		// Keep the next family name from landing alone at the page bottom.
		c.MaybeBreak(s)
	}

	c.Advance(LineHeight)
	c.WriteAt(s, r.LeftX, TotalLine(count))
	return count, nil
}

// Filename returns the download name of the report generated at now.
func Filename(prefix string, now time.Time, layout string) string {
	return prefix + now.Format(layout) + ".pdf"
}
