package app

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"vila_mar/internal/domain"
)

// BookingService admits manual reservations: it validates the request, checks
// bed availability for every day of the stay, and persists on success.
//
// The occupancy read and the insert are not atomic with respect to other
// writers; two bookings racing for the last bed can both be admitted. At this
// site's write volume that window is accepted rather than serialized.
type BookingService struct {
	repo    domain.ReservationRepository
	cache   domain.Cache
	catalog domain.Catalog
}

func NewBookingService(r domain.ReservationRepository, c domain.Cache, catalog domain.Catalog) *BookingService {
	return &BookingService{repo: r, cache: c, catalog: catalog}
}

// BookingRequest carries the raw form input; Checkin/Checkout are parsed here
// so the caller gets a field-level error for garbage dates.
type BookingRequest struct {
	Room      domain.Room
	Checkin   string
	Checkout  string
	Beds      int
	GuestName string
	Phone     string
	Email     string
}

var (
	// first rune must be a letter, so the 2-rune minimum can't be met with
	// punctuation alone
	nameRe  = regexp.MustCompile(`^\p{L}[\p{L} '\-]+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// Book validates and persists one manual reservation, returning its id.
// Validation fails on the first violation; nothing is written until every
// check has passed.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (int64, error) {
	if !s.catalog.Has(req.Room) {
		return 0, &domain.ValidationError{Field: "room", Reason: "unknown room"}
	}
	if req.Beds < 1 {
		return 0, &domain.ValidationError{Field: "beds", Reason: "must be a positive integer"}
	}

	checkin, err := parseInstant(req.Checkin)
	if err != nil {
		return 0, &domain.ValidationError{Field: "checkin", Reason: "not a valid date"}
	}
	checkout, err := parseInstant(req.Checkout)
	if err != nil {
		return 0, &domain.ValidationError{Field: "checkout", Reason: "not a valid date"}
	}
	if !checkout.After(checkin) {
		return 0, &domain.ValidationError{Field: "checkout", Reason: "must be after checkin"}
	}

	name := strings.TrimSpace(req.GuestName)
	if utf8.RuneCountInString(name) < 2 || !nameRe.MatchString(name) {
		return 0, &domain.ValidationError{Field: "guestName", Reason: "at least 2 characters; letters, spaces, hyphens and apostrophes only"}
	}

	email := strings.TrimSpace(req.Email)
	if !emailRe.MatchString(email) {
		return 0, &domain.ValidationError{Field: "email", Reason: "not a valid email address"}
	}

	phone := strings.TrimSpace(req.Phone)
	if n := len(digitRe.FindAllString(phone, -1)); n < 8 || n > 15 {
		return 0, &domain.ValidationError{Field: "phone", Reason: "must contain 8 to 15 digits"}
	}

	// Full read-then-check before any write: load everything touching the
	// stay's day range once, then walk the days in order so the earliest
	// conflicting day is the one reported.
	from := domain.StartOfDay(checkin)
	to := domain.StartOfDay(checkout)
	existing, err := s.repo.ListOverlapping(ctx, req.Room, from, to)
	if err != nil {
		return 0, err
	}
	capacity := s.catalog.Capacity(req.Room)
	for _, day := range domain.DaysInRange(checkin, checkout) {
		occupied := domain.OccupiedBeds(existing, req.Room, day)
		if occupied+req.Beds > capacity {
			return 0, &domain.CapacityConflictError{
				Room:      req.Room,
				Day:       day,
				Occupied:  occupied,
				Requested: req.Beds,
				Capacity:  capacity,
			}
		}
	}

	id, err := s.repo.Insert(ctx, domain.Reservation{
		Room:      req.Room,
		Checkin:   checkin,
		Checkout:  checkout,
		Beds:      req.Beds,
		GuestName: name,
		Phone:     &phone,
		Email:     &email,
		Source:    domain.SourceManual,
		Status:    domain.StatusConfirmed,
	})
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		invalidateRoomViews(ctx, s.cache, req.Room)
	}
	log.Info().Str("room", string(req.Room)).Int("beds", req.Beds).Int64("id", id).Msg("manual booking admitted")
	return id, nil
}

var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range instantLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// invalidateRoomViews drops the cached views a write can stale: the default
// calendar window starting today and the unfiltered listing. Other cached
// variants age out with the TTL.
func invalidateRoomViews(ctx context.Context, cache domain.Cache, room domain.Room) {
	today := domain.StartOfDay(time.Now())
	_ = cache.Del(ctx, calendarKey(room, today, defaultCalendarDays))
	_ = cache.Del(ctx, reservationsKey(domain.ReservationsQuery{}))
}
