package domain

import "time"

// Room identifies a bookable unit. The set is fixed; see DefaultCatalog.
type Room string

const (
	RoomDormitorio Room = "dormitorio"
	RoomSuite      Room = "suite"
	RoomEstudio    Room = "estudio"
	RoomT2         Room = "t2"
)

// Source identifies the writer that created a reservation. It is the unit of
// idempotent replacement: an import wipes and rewrites one (room, source) pair.
type Source string

const (
	SourceBooking Source = "booking"
	SourceAirbnb  Source = "airbnb"
	SourceManual  Source = "manual"
)

// FeedSources are the sources that can be backed by an external iCal feed.
var FeedSources = []Source{SourceBooking, SourceAirbnb}

type Status string

// StatusConfirmed is the only status in the current model; the column exists
// so a cancellation workflow can be added without a migration.
const StatusConfirmed Status = "confirmed"

type Reservation struct {
	ID        int64
	Room      Room
	Checkin   time.Time
	Checkout  time.Time
	Beds      int
	GuestName string
	Phone     *string // nil for imported reservations
	Email     *string
	Source    Source
	Status    Status
}

// Catalog maps each room to its total bed capacity.
type Catalog map[Room]int

func DefaultCatalog() Catalog {
	return Catalog{
		RoomDormitorio: 9,
		RoomSuite:      4,
		RoomEstudio:    5,
		RoomT2:         4,
	}
}

// Capacity returns the bed capacity for room. Unknown rooms default to 1 so
// that accounting never divides by zero; callers validate against Has first.
func (c Catalog) Capacity(room Room) int {
	if n, ok := c[room]; ok && n > 0 {
		return n
	}
	return 1
}

func (c Catalog) Has(room Room) bool {
	_, ok := c[room]
	return ok
}
