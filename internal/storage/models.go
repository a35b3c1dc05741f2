package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrMissingOwner is returned when a record is written without an owner.
var ErrMissingOwner = errors.New("owner id is required")

// AppStats summarises the whole store across all owners.
type AppStats struct {
	TotalOwners int `json:"totalOwners"`
	TotalJobs   int `json:"totalJobs"`
}
