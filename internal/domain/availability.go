package domain

import "time"

// DayState classifies one calendar day of one room.
type DayState string

const (
	DayFree    DayState = "free"
	DayPartial DayState = "partial"
	DayFull    DayState = "full"
)

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Occupies reports whether r consumes beds on the calendar day of `day`.
// The interval is half-open on days: the checkout day itself is free, which
// allows same-day turnover.
func Occupies(r Reservation, day time.Time) bool {
	d := StartOfDay(day)
	return !d.Before(StartOfDay(r.Checkin)) && d.Before(StartOfDay(r.Checkout))
}

// OccupiedBeds sums the beds of every reservation in rs that occupies `day`
// for `room`. Non-positive bed counts contribute nothing.
func OccupiedBeds(rs []Reservation, room Room, day time.Time) int {
	total := 0
	for _, r := range rs {
		if r.Room != room || !Occupies(r, day) {
			continue
		}
		if r.Beds > 0 {
			total += r.Beds
		}
	}
	return total
}

// StateOfDay classifies `day` for `room` against the catalog capacity.
func StateOfDay(c Catalog, rs []Reservation, room Room, day time.Time) DayState {
	occupied := OccupiedBeds(rs, room, day)
	switch {
	case occupied == 0:
		return DayFree
	case occupied >= c.Capacity(room):
		return DayFull
	default:
		return DayPartial
	}
}

// DaysInRange returns the whole calendar days in [StartOfDay(start),
// StartOfDay(end)), oldest first. Empty when end <= start.
func DaysInRange(start, end time.Time) []time.Time {
	from, to := StartOfDay(start), StartOfDay(end)
	var days []time.Time
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
