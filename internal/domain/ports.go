package domain

import (
	"context"
	"time"
)

type ReservationRepository interface {
	// Write paths
	Insert(ctx context.Context, r Reservation) (int64, error)
	ReplaceForSource(ctx context.Context, room Room, source Source, batch []Reservation) (int, error)
	InsertSyncRun(ctx context.Context, run SyncRun) error

	// Read paths
	List(ctx context.Context, q ReservationsQuery) ([]Reservation, error)
	ListOverlapping(ctx context.Context, room Room, from, to time.Time) ([]Reservation, error)
	LastSyncRun(ctx context.Context) (SyncRun, error)
}

// FeedClient fetches a remote calendar feed and returns its events, parsed
// but not yet normalized to stays.
type FeedClient interface {
	FetchEvents(ctx context.Context, url string) ([]FeedEvent, error)
}

// FeedEvent is one VEVENT from a feed. Start/End are zero when the event is
// missing the corresponding property.
type FeedEvent struct {
	Summary   string
	Start     time.Time
	End       time.Time
	Cancelled bool
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries

// ReservationsQuery filters the admin/public listing. Day selects
// reservations whose datetime interval overlaps that calendar day.
type ReservationsQuery struct {
	Room   *Room
	Source *Source
	Day    *time.Time
	Limit  int
}

// SyncRun is one persisted orchestrator outcome. Summary holds the
// JSON-encoded SyncSummary; it is display data, never read back for logic.
type SyncRun struct {
	ID      int64
	RanAt   time.Time
	OK      bool
	Summary []byte
}

type SyncResult struct {
	Room     Room   `json:"room"`
	Source   Source `json:"source"`
	URL      string `json:"url"`
	Inserted int    `json:"inserted"`
}

type SyncJobError struct {
	Room   Room   `json:"room"`
	Source Source `json:"source"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

type SyncSummary struct {
	OK      bool           `json:"ok"`
	Ran     int            `json:"ran"`
	Results []SyncResult   `json:"results"`
	Errors  []SyncJobError `json:"errors"`
	Note    string         `json:"note,omitempty"`
}
