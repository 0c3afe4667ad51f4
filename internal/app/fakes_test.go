package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"vila_mar/internal/domain"
)

// ---- fakes shared by the app tests ----

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	stored []domain.Reservation
	runs   []domain.SyncRun

	insertErr  error
	replaceErr map[string]error // keyed by room/source
}

func partitionKey(room domain.Room, source domain.Source) string {
	return string(room) + "/" + string(source)
}

func (f *fakeRepo) Insert(ctx context.Context, r domain.Reservation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	r.ID = f.nextID
	f.stored = append(f.stored, r)
	return r.ID, nil
}

func (f *fakeRepo) ReplaceForSource(ctx context.Context, room domain.Room, source domain.Source, batch []domain.Reservation) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.replaceErr[partitionKey(room, source)]; err != nil {
		return 0, err
	}
	kept := f.stored[:0]
	for _, r := range f.stored {
		if r.Room != room || r.Source != source {
			kept = append(kept, r)
		}
	}
	f.stored = kept
	for _, r := range batch {
		f.nextID++
		r.ID = f.nextID
		r.Room = room
		r.Source = source
		f.stored = append(f.stored, r)
	}
	return len(batch), nil
}

func (f *fakeRepo) InsertSyncRun(ctx context.Context, run domain.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.stored {
		if q.Room != nil && r.Room != *q.Room {
			continue
		}
		if q.Source != nil && r.Source != *q.Source {
			continue
		}
		if q.Day != nil {
			start := domain.StartOfDay(*q.Day)
			end := start.AddDate(0, 0, 1)
			if !r.Checkout.After(start) || !r.Checkin.Before(end) {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) ListOverlapping(ctx context.Context, room domain.Room, from, to time.Time) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.stored {
		if r.Room == room && r.Checkout.After(from) && r.Checkin.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) LastSyncRun(ctx context.Context) (domain.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return domain.SyncRun{}, domain.ErrNotFound
	}
	return f.runs[len(f.runs)-1], nil
}

func (f *fakeRepo) partition(room domain.Room, source domain.Source) []domain.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.stored {
		if r.Room == room && r.Source == source {
			out = append(out, r)
		}
	}
	return out
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type fakeFeed struct {
	mu     sync.Mutex
	events map[string][]domain.FeedEvent
	errs   map[string]error
	calls  map[string]int
}

func (f *fakeFeed) FetchEvents(ctx context.Context, url string) ([]domain.FeedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.events[url], nil
}
