package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed field on a manual booking request.
// Nothing is persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapacityConflictError reports the earliest day on which admitting the
// request would exceed the room's bed capacity.
type CapacityConflictError struct {
	Room      Room
	Day       time.Time
	Occupied  int
	Requested int
	Capacity  int
}

func (e *CapacityConflictError) Error() string {
	return fmt.Sprintf("room %s full on %s: %d occupied + %d requested > %d capacity",
		e.Room, e.Day.Format("2006-01-02"), e.Occupied, e.Requested, e.Capacity)
}

// JobRef names one configured sync job.
type JobRef struct {
	Room   Room   `json:"room"`
	Source Source `json:"source"`
}

// ConfigurationError is raised by the sync trigger before any network
// activity: either no feeds are configured at all, or a filter matched none.
type ConfigurationError struct {
	Reason    string
	Available []JobRef
}

func (e *ConfigurationError) Error() string { return e.Reason }
