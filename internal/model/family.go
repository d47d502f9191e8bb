package model

import "time"

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Classification ids seeded by the initial migration. NonAttenderStaff and
// Deceased never count towards voting membership.
const (
	ClassMember           int64 = 1
	ClassRegularAttender  int64 = 2
	ClassGuest            int64 = 3
	ClassNonAttender      int64 = 5
	ClassNonAttenderStaff int64 = 6
	ClassDeceased         int64 = 7
)

const ClassMemberName = "Member"

type Classification struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Person struct {
	ID               int64     `json:"id"`
	FamilyID         int64     `json:"family_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	ClassificationID int64     `json:"classification_id"`
	Classification   string    `json:"classification"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
