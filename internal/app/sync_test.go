package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"vila_mar/internal/app"
	"vila_mar/internal/domain"
	"vila_mar/internal/shared"
)

func job(room domain.Room, source domain.Source) shared.FeedJob {
	return shared.FeedJob{
		Room:        room,
		Source:      source,
		URL:         fmt.Sprintf("https://feeds.test/%s/%s.ics", source, room),
		DefaultBeds: 1,
	}
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.Local)
}

func newSyncService(feed *fakeFeed, repo *fakeRepo, jobs ...shared.FeedJob) *app.SyncService {
	return app.NewSyncService(feed, repo, &fakeCache{}, jobs, 2)
}

func TestRun_ProjectsEventsToStays(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{
		j.URL: {
			{Summary: "Guest One", Start: at(2026, 1, 10, 16), End: at(2026, 1, 12, 9)},
		},
	}}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j)

	summary, err := svc.Run(context.Background(), app.SyncFilter{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !summary.OK || summary.Ran != 1 || len(summary.Results) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Results[0].Inserted != 1 {
		t.Fatalf("inserted: got %d, want 1", summary.Results[0].Inserted)
	}

	got := repo.partition(domain.RoomSuite, domain.SourceBooking)
	if len(got) != 1 {
		t.Fatalf("stored %d reservations, want 1", len(got))
	}
	r := got[0]
	// stays are normalized to whole days with fixed 14:00/11:00 times
	if r.Checkin.Hour() != 14 || r.Checkin.Day() != 10 {
		t.Fatalf("checkin: got %v", r.Checkin)
	}
	if r.Checkout.Hour() != 11 || r.Checkout.Day() != 12 {
		t.Fatalf("checkout: got %v", r.Checkout)
	}
	if r.GuestName != "Guest One" || r.Beds != 1 || r.Status != domain.StatusConfirmed {
		t.Fatalf("unexpected reservation: %+v", r)
	}
	if r.Phone != nil || r.Email != nil {
		t.Fatal("imported reservations carry no contact fields")
	}
}

func TestRun_SkipsCancelledMissingAndInverted(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{
		j.URL: {
			{Summary: "Keep", Start: at(2026, 1, 10, 0), End: at(2026, 1, 12, 0)},
			{Summary: "Cancelled", Start: at(2026, 1, 14, 0), End: at(2026, 1, 16, 0), Cancelled: true},
			{Summary: "No end", Start: at(2026, 1, 20, 0)},
			// same calendar day after normalization -> inverted, dropped
			{Summary: "Collapsed", Start: at(2026, 1, 22, 9), End: at(2026, 1, 22, 18)},
		},
	}}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j)

	summary, err := svc.Run(context.Background(), app.SyncFilter{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if summary.Results[0].Inserted != 1 {
		t.Fatalf("inserted: got %d, want 1", summary.Results[0].Inserted)
	}
	got := repo.partition(domain.RoomSuite, domain.SourceBooking)
	if len(got) != 1 || got[0].GuestName != "Keep" {
		t.Fatalf("unexpected partition: %+v", got)
	}
}

func TestRun_FallbackGuestName(t *testing.T) {
	j := job(domain.RoomT2, domain.SourceAirbnb)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{
		j.URL: {{Start: at(2026, 2, 1, 0), End: at(2026, 2, 3, 0)}},
	}}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j)

	if _, err := svc.Run(context.Background(), app.SyncFilter{}); err != nil {
		t.Fatalf("err: %v", err)
	}
	got := repo.partition(domain.RoomT2, domain.SourceAirbnb)
	if len(got) != 1 || got[0].GuestName != "airbnb reservation" {
		t.Fatalf("unexpected partition: %+v", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{
		j.URL: {
			{Summary: "A", Start: at(2026, 1, 10, 0), End: at(2026, 1, 12, 0)},
			{Summary: "B", Start: at(2026, 1, 15, 0), End: at(2026, 1, 18, 0)},
		},
	}}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j)

	for i := 0; i < 2; i++ {
		if _, err := svc.Run(context.Background(), app.SyncFilter{}); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	got := repo.partition(domain.RoomSuite, domain.SourceBooking)
	if len(got) != 2 {
		t.Fatalf("after two runs: %d reservations, want 2", len(got))
	}
	intervals := map[string]bool{}
	for _, r := range got {
		intervals[r.Checkin.Format("2006-01-02")+"/"+r.Checkout.Format("2006-01-02")] = true
	}
	if !intervals["2026-01-10/2026-01-12"] || !intervals["2026-01-15/2026-01-18"] {
		t.Fatalf("unexpected intervals: %v", intervals)
	}
}

func TestRun_LeavesOtherPartitionsAlone(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{j.URL: {}}}
	repo := &fakeRepo{}

	// same room, different sources
	_, _ = repo.Insert(context.Background(), domain.Reservation{
		Room: domain.RoomSuite, Checkin: at(2026, 1, 5, 14), Checkout: at(2026, 1, 7, 11),
		Beds: 1, GuestName: "Manual Guest", Source: domain.SourceManual, Status: domain.StatusConfirmed,
	})
	_, _ = repo.Insert(context.Background(), domain.Reservation{
		Room: domain.RoomSuite, Checkin: at(2026, 1, 5, 14), Checkout: at(2026, 1, 7, 11),
		Beds: 1, GuestName: "Airbnb Guest", Source: domain.SourceAirbnb, Status: domain.StatusConfirmed,
	})

	svc := newSyncService(feed, repo, j)
	if _, err := svc.Run(context.Background(), app.SyncFilter{}); err != nil {
		t.Fatalf("err: %v", err)
	}

	if len(repo.partition(domain.RoomSuite, domain.SourceManual)) != 1 {
		t.Fatal("manual partition touched by import")
	}
	if len(repo.partition(domain.RoomSuite, domain.SourceAirbnb)) != 1 {
		t.Fatal("airbnb partition touched by booking import")
	}
	if len(repo.partition(domain.RoomSuite, domain.SourceBooking)) != 0 {
		t.Fatal("booking partition should be emptied by an empty feed")
	}
}

func TestRun_FailingJobDoesNotStopSiblings(t *testing.T) {
	j1 := job(domain.RoomDormitorio, domain.SourceBooking)
	j2 := job(domain.RoomSuite, domain.SourceBooking)
	j3 := job(domain.RoomT2, domain.SourceAirbnb)
	feed := &fakeFeed{
		events: map[string][]domain.FeedEvent{
			j1.URL: {{Summary: "A", Start: at(2026, 1, 10, 0), End: at(2026, 1, 12, 0)}},
			j3.URL: {{Summary: "C", Start: at(2026, 1, 10, 0), End: at(2026, 1, 12, 0)}},
		},
		errs: map[string]error{j2.URL: errors.New("feed returned 503")},
	}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j1, j2, j3)

	summary, err := svc.Run(context.Background(), app.SyncFilter{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if summary.OK {
		t.Fatal("summary.OK must be false when a job fails")
	}
	if summary.Ran != 3 || len(summary.Results) != 2 || len(summary.Errors) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	e := summary.Errors[0]
	if e.Room != domain.RoomSuite || e.Source != domain.SourceBooking || e.URL != j2.URL {
		t.Fatalf("error entry: %+v", e)
	}
	// the failed pair's data is untouched, the siblings imported
	if len(repo.partition(domain.RoomDormitorio, domain.SourceBooking)) != 1 {
		t.Fatal("job 1 should have imported")
	}
	if len(repo.partition(domain.RoomT2, domain.SourceAirbnb)) != 1 {
		t.Fatal("job 3 should have imported")
	}
}

func TestRun_StoreFailureBecomesJobError(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{
		j.URL: {{Summary: "A", Start: at(2026, 1, 10, 0), End: at(2026, 1, 12, 0)}},
	}}
	repo := &fakeRepo{replaceErr: map[string]error{
		partitionKey(domain.RoomSuite, domain.SourceBooking): errors.New("deadlock"),
	}}
	svc := newSyncService(feed, repo, j)

	summary, err := svc.Run(context.Background(), app.SyncFilter{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if summary.OK || len(summary.Errors) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Errors[0].Error != "deadlock" {
		t.Fatalf("error entry: %+v", summary.Errors[0])
	}
}

func TestRun_FailedFetchLeavesExistingData(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{errs: map[string]error{j.URL: errors.New("boom")}}
	repo := &fakeRepo{}
	_, _ = repo.ReplaceForSource(context.Background(), domain.RoomSuite, domain.SourceBooking, []domain.Reservation{
		{Checkin: at(2026, 1, 5, 14), Checkout: at(2026, 1, 7, 11), Beds: 1, GuestName: "Old", Status: domain.StatusConfirmed},
	})

	svc := newSyncService(feed, repo, j)
	if _, err := svc.Run(context.Background(), app.SyncFilter{}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(repo.partition(domain.RoomSuite, domain.SourceBooking)) != 1 {
		t.Fatal("failed fetch must not wipe the partition")
	}
}

func TestRun_Filter(t *testing.T) {
	j1 := job(domain.RoomSuite, domain.SourceBooking)
	j2 := job(domain.RoomSuite, domain.SourceAirbnb)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{j1.URL: {}, j2.URL: {}}}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j1, j2)

	source := domain.SourceAirbnb
	summary, err := svc.Run(context.Background(), app.SyncFilter{Source: &source})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if summary.Ran != 1 {
		t.Fatalf("ran: got %d, want 1", summary.Ran)
	}
	if feed.calls[j1.URL] != 0 || feed.calls[j2.URL] != 1 {
		t.Fatalf("calls: %v", feed.calls)
	}
}

func TestRun_FilterMatchesNothing(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j)

	room := domain.RoomT2
	_, err := svc.Run(context.Background(), app.SyncFilter{Room: &room})
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if len(ce.Available) != 1 || ce.Available[0].Room != domain.RoomSuite {
		t.Fatalf("available jobs: %+v", ce.Available)
	}
	if len(feed.calls) != 0 {
		t.Fatal("no network activity expected before the filter check")
	}
	// the empty run is still logged, as a non-ok run with a note
	run, err := repo.LastSyncRun(context.Background())
	if err != nil {
		t.Fatalf("LastSyncRun: %v", err)
	}
	if run.OK {
		t.Fatal("empty run must be logged as not ok")
	}
	var s domain.SyncSummary
	if err := json.Unmarshal(run.Summary, &s); err != nil || s.Note == "" {
		t.Fatalf("summary note missing: %s", run.Summary)
	}
}

func TestRun_NoJobsConfigured(t *testing.T) {
	repo := &fakeRepo{}
	svc := newSyncService(&fakeFeed{}, repo)

	_, err := svc.Run(context.Background(), app.SyncFilter{})
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if _, err := repo.LastSyncRun(context.Background()); err != nil {
		t.Fatal("no-jobs run must still be logged")
	}
}

func TestRun_PersistsSummary(t *testing.T) {
	j := job(domain.RoomSuite, domain.SourceBooking)
	feed := &fakeFeed{events: map[string][]domain.FeedEvent{
		j.URL: {{Summary: "A", Start: at(2026, 1, 10, 0), End: at(2026, 1, 12, 0)}},
	}}
	repo := &fakeRepo{}
	svc := newSyncService(feed, repo, j)

	if _, err := svc.Run(context.Background(), app.SyncFilter{}); err != nil {
		t.Fatalf("err: %v", err)
	}
	run, err := repo.LastSyncRun(context.Background())
	if err != nil {
		t.Fatalf("LastSyncRun: %v", err)
	}
	if !run.OK || run.RanAt.IsZero() {
		t.Fatalf("unexpected run: %+v", run)
	}
	var s domain.SyncSummary
	if err := json.Unmarshal(run.Summary, &s); err != nil {
		t.Fatalf("summary not JSON: %v", err)
	}
	if s.Ran != 1 || len(s.Results) != 1 || s.Results[0].Inserted != 1 {
		t.Fatalf("unexpected persisted summary: %+v", s)
	}
}
