package app

import (
	"strings"
	"time"

	"vila_mar/internal/domain"
	"vila_mar/internal/shared"
)

// Feed events carry whatever instants the upstream exported; a stay is the
// whole-day normalization of one: checkin day at 14:00 local through checkout
// day at 11:00 local.
const (
	checkinHour  = 14
	checkoutHour = 11
)

// projectStays turns feed events into the reservation batch for one job.
// Dropped here: cancelled events, events missing a start or end, and events
// whose interval collapses after day normalization.
func projectStays(job shared.FeedJob, events []domain.FeedEvent) []domain.Reservation {
	out := make([]domain.Reservation, 0, len(events))
	for _, ev := range events {
		if ev.Cancelled || ev.Start.IsZero() || ev.End.IsZero() {
			continue
		}
		ciDay := domain.StartOfDay(ev.Start.In(time.Local))
		coDay := domain.StartOfDay(ev.End.In(time.Local))
		if !coDay.After(ciDay) {
			continue
		}
		name := strings.TrimSpace(ev.Summary)
		if name == "" {
			name = string(job.Source) + " reservation"
		}
		out = append(out, domain.Reservation{
			Room:      job.Room,
			Checkin:   atHour(ciDay, checkinHour),
			Checkout:  atHour(coDay, checkoutHour),
			Beds:      job.DefaultBeds,
			GuestName: name,
			Source:    job.Source,
			Status:    domain.StatusConfirmed,
		})
	}
	return out
}

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}
