package job

import "time"

// Status is the stage an application has reached.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInterview Status = "interview"
	StatusDeclined  Status = "declined"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusPending, StatusInterview, StatusDeclined}

// Type is the employment type of a position.
type Type string

const (
	TypeFullTime   Type = "full-time"
	TypePartTime   Type = "part-time"
	TypeInternship Type = "internship"
	TypeRemote     Type = "remote"
)

// Types lists every known employment type.
var Types = []Type{TypeFullTime, TypePartTime, TypeInternship, TypeRemote}

// ParseStatus returns the Status named by s, or false if s is not a known status.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ParseType returns the Type named by s, or false if s is not a known type.
func ParseType(s string) (Type, bool) {
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Record is a single tracked job application. Records always belong to
// exactly one owner.
type Record struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Company   string    `json:"company"`
	Position  string    `json:"position"`
	Location  string    `json:"location"`
	Status    Status    `json:"status"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
