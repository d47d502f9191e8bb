package model

import "time"

// Setting is one row of the system configuration table. Keys keep the
// legacy names (iFYMonth, iPDFOutputType, ...) so exported configs stay
// readable to administrators.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
