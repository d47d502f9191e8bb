package model

import "time"

const (
	PledgeKindPledge  = "Pledge"
	PledgeKindPayment = "Payment"
)

type Pledge struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	FiscalYearID int       `json:"fiscal_year_id"`
	AmountCents  int64     `json:"amount_cents"`
	Kind         string    `json:"kind"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"created_at"`
}
