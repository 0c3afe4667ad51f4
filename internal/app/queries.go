package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vila_mar/internal/domain"
)

const defaultCalendarDays = 30

type QueryService struct {
	repo     domain.ReservationRepository
	cache    domain.Cache
	catalog  domain.Catalog
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReservationRepository, c domain.Cache, catalog domain.Catalog, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, catalog: catalog, cacheTTL: ttl}
}

// CalendarDay is one cell of the availability calendar.
type CalendarDay struct {
	Date     string          `json:"date"`
	State    domain.DayState `json:"state"`
	Occupied int             `json:"occupied"`
}

type RoomCalendar struct {
	Room     domain.Room   `json:"room"`
	Capacity int           `json:"capacity"`
	Days     []CalendarDay `json:"days"`
}

// SyncRunView is the admin readout of the latest orchestrator run.
type SyncRunView struct {
	RanAt   time.Time       `json:"ranAt"`
	OK      bool            `json:"ok"`
	Summary json.RawMessage `json:"summary"`
}

// Calendar returns per-day occupancy states for one room over `days` whole
// days starting at `from`'s calendar day.
func (s *QueryService) Calendar(ctx context.Context, room domain.Room, from time.Time, days int) (RoomCalendar, error) {
	if !s.catalog.Has(room) {
		return RoomCalendar{}, domain.ErrNotFound
	}
	if days <= 0 {
		days = defaultCalendarDays
	}
	start := domain.StartOfDay(from)
	end := start.AddDate(0, 0, days)

	key := calendarKey(room, start, days)
	var cached RoomCalendar
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	rs, err := s.repo.ListOverlapping(ctx, room, start, end)
	if err != nil {
		return RoomCalendar{}, err
	}

	out := RoomCalendar{Room: room, Capacity: s.catalog.Capacity(room)}
	for _, day := range domain.DaysInRange(start, end) {
		out.Days = append(out.Days, CalendarDay{
			Date:     day.Format("2006-01-02"),
			State:    domain.StateOfDay(s.catalog, rs, room, day),
			Occupied: domain.OccupiedBeds(rs, room, day),
		})
	}

	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// ListReservations serves the public read endpoint and the admin table.
func (s *QueryService) ListReservations(ctx context.Context, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	key := reservationsKey(q)
	var cached []domain.Reservation
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	rs, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	// copy so a cached value can't alias the repo's backing array
	out := make([]domain.Reservation, len(rs))
	copy(out, rs)

	// size guard: skip caching absurdly large listings
	if b, _ := json.Marshal(out); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// LastSyncRun returns the most recent orchestrator outcome, or ErrNotFound
// when no run has been recorded yet.
func (s *QueryService) LastSyncRun(ctx context.Context) (SyncRunView, error) {
	run, err := s.repo.LastSyncRun(ctx)
	if err != nil {
		return SyncRunView{}, err
	}
	view := SyncRunView{RanAt: run.RanAt, OK: run.OK}
	if len(run.Summary) > 0 && json.Valid(run.Summary) {
		view.Summary = json.RawMessage(run.Summary)
	}
	return view, nil
}

func calendarKey(room domain.Room, from time.Time, days int) string {
	return fmt.Sprintf("calendar:%s:%s:%d", room, from.Format("2006-01-02"), days)
}

func reservationsKey(q domain.ReservationsQuery) string {
	room, source, day := "all", "all", "all"
	if q.Room != nil {
		room = string(*q.Room)
	}
	if q.Source != nil {
		source = string(*q.Source)
	}
	if q.Day != nil {
		day = q.Day.Format("2006-01-02")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 300
	}
	return fmt.Sprintf("reservations:%s:%s:%s:%d", room, source, day, limit)
}
