package app

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"vila_mar/internal/adapters/observability"
	"vila_mar/internal/domain"
	"vila_mar/internal/shared"
)

// SyncService runs the configured feed jobs and aggregates one summary per
// run. Jobs touch disjoint (room, source) partitions, so they run
// concurrently under a bounded semaphore; a failing job becomes an error
// entry in the summary and never stops its siblings.
type SyncService struct {
	feed    domain.FeedClient
	repo    domain.ReservationRepository
	cache   domain.Cache
	jobs    []shared.FeedJob
	workers int
}

func NewSyncService(feed domain.FeedClient, repo domain.ReservationRepository, cache domain.Cache, jobs []shared.FeedJob, workers int) *SyncService {
	if workers <= 0 {
		workers = 1
	}
	return &SyncService{feed: feed, repo: repo, cache: cache, jobs: jobs, workers: workers}
}

// SyncFilter optionally narrows a run to one room and/or source.
type SyncFilter struct {
	Room   *domain.Room
	Source *domain.Source
}

func (f SyncFilter) describe() string {
	var parts []string
	if f.Room != nil {
		parts = append(parts, "room="+string(*f.Room))
	}
	if f.Source != nil {
		parts = append(parts, "source="+string(*f.Source))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func (f SyncFilter) matches(j shared.FeedJob) bool {
	if f.Room != nil && j.Room != *f.Room {
		return false
	}
	if f.Source != nil && j.Source != *f.Source {
		return false
	}
	return true
}

// Run executes every configured job that matches the filter. The summary is
// persisted as a sync_runs row whatever the outcome; a ConfigurationError is
// returned before any network activity when there is nothing to run.
func (s *SyncService) Run(ctx context.Context, filter SyncFilter) (domain.SyncSummary, error) {
	if len(s.jobs) == 0 {
		summary := domain.SyncSummary{Note: "no iCal feeds configured"}
		s.persist(ctx, summary)
		return summary, &domain.ConfigurationError{Reason: "no iCal feeds configured"}
	}

	jobs := make([]shared.FeedJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.matches(j) {
			jobs = append(jobs, j)
		}
	}
	if len(jobs) == 0 {
		reason := "no sync job matches the filter" + filter.describe()
		summary := domain.SyncSummary{Note: reason}
		s.persist(ctx, summary)
		return summary, &domain.ConfigurationError{Reason: reason, Available: s.available()}
	}

	summary := domain.SyncSummary{Ran: len(jobs)}
	sem := semaphore.NewWeighted(int64(s.workers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, job := range jobs {
		job := job

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			summary.Errors = append(summary.Errors, jobError(job, err))
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			inserted, err := s.importFeed(ctx, job)
			observability.ObserveSyncJob(string(job.Room), string(job.Source), err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Str("room", string(job.Room)).Str("source", string(job.Source)).Err(err).Msg("sync job failed")
				summary.Errors = append(summary.Errors, jobError(job, err))
				return
			}
			log.Info().Str("room", string(job.Room)).Str("source", string(job.Source)).Int("inserted", inserted).Msg("sync job ok")
			summary.Results = append(summary.Results, domain.SyncResult{
				Room: job.Room, Source: job.Source, URL: job.URL, Inserted: inserted,
			})
		}()
	}
	wg.Wait()

	// concurrent collection scrambles order; sort for stable summaries
	sort.Slice(summary.Results, func(i, j int) bool {
		a, b := summary.Results[i], summary.Results[j]
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		return a.Source < b.Source
	})
	sort.Slice(summary.Errors, func(i, j int) bool {
		a, b := summary.Errors[i], summary.Errors[j]
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		return a.Source < b.Source
	})

	summary.OK = len(summary.Errors) == 0
	s.persist(ctx, summary)
	return summary, nil
}

// importFeed fetches one feed and replaces that (room, source) partition in a
// single transaction. Imports trust the upstream: no admission check, and a
// feed exceeding nominal capacity is stored as-is so the overbooking shows up
// on the calendar instead of being silently dropped.
func (s *SyncService) importFeed(ctx context.Context, job shared.FeedJob) (int, error) {
	events, err := s.feed.FetchEvents(ctx, job.URL)
	if err != nil {
		return 0, err
	}
	batch := projectStays(job, events)
	inserted, err := s.repo.ReplaceForSource(ctx, job.Room, job.Source, batch)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		invalidateRoomViews(ctx, s.cache, job.Room)
	}
	return inserted, nil
}

func (s *SyncService) persist(ctx context.Context, summary domain.SyncSummary) {
	b, err := json.Marshal(summary)
	if err != nil {
		log.Error().Err(err).Msg("marshal sync summary failed")
		b = []byte("{}")
	}
	run := domain.SyncRun{RanAt: time.Now(), OK: summary.OK, Summary: b}
	if err := s.repo.InsertSyncRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("persist sync run failed")
	}
}

func (s *SyncService) available() []domain.JobRef {
	refs := make([]domain.JobRef, 0, len(s.jobs))
	for _, j := range s.jobs {
		refs = append(refs, domain.JobRef{Room: j.Room, Source: j.Source})
	}
	return refs
}

func jobError(job shared.FeedJob, err error) domain.SyncJobError {
	return domain.SyncJobError{Room: job.Room, Source: job.Source, URL: job.URL, Error: err.Error()}
}
