package persistence

import "time"

// Resource represents a bookable space in the catalog.
type Resource struct {
	ID                     string
	Name                   string
	Kind                   string
	Capacity               int
	Hours                  []OperatingHours
	SlotGranularityMinutes int
	MinAdvanceMinutes      int
	MaxDurationMinutes     int
	RequiresApproval       bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// OperatingHours stores the opening window of a resource for one weekday.
// Open and Close use the "HH:MM" layout.
type OperatingHours struct {
	Weekday time.Weekday
	Open    string
	Close   string
}

// Reservation represents a stored booking of a resource.
type Reservation struct {
	ID                 string
	ResourceID         string
	Start              time.Time
	End                time.Time
	ParticipantCount   int
	Status             string
	RecurrenceParentID *string
	Title              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
