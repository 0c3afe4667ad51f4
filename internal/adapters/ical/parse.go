package ical

import (
	"bytes"
	"fmt"
	"strings"

	ics "github.com/arran4/golang-ical"

	"vila_mar/internal/domain"
)

// parseEvents turns a raw ICS payload into feed events. It does not drop
// anything beyond unparseable calendars: cancellation and missing-time
// filtering belongs to the importer, which also logs what it skips.
func parseEvents(body []byte) ([]domain.FeedEvent, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	events := make([]domain.FeedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		events = append(events, parseVEvent(ve))
	}
	return events, nil
}

func parseVEvent(ve *ics.VEvent) domain.FeedEvent {
	var out domain.FeedEvent

	if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ics.ComponentPropertyStatus); p != nil {
		out.Cancelled = strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED")
	}

	// Booking/Airbnb exports use both DATE-TIME and all-day DATE values;
	// try the timed accessor first, then the all-day one. A VEVENT missing
	// DTSTART or DTEND keeps the zero time.
	if start, err := ve.GetStartAt(); err == nil {
		out.Start = start
	} else if start, err := ve.GetAllDayStartAt(); err == nil {
		out.Start = start
	}
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	} else if end, err := ve.GetAllDayEndAt(); err == nil {
		out.End = end
	}

	return out
}
