// Package scheduler orchestrates one fetch run: it triages the descriptor
// list against the record store, then drives the fetch workers in randomized
// batches under a hard concurrency cap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veldtlabs/ecocat/fetcher"
	"github.com/veldtlabs/ecocat/jitter"
	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/store"
)

// Prober is the slice of the record store triage needs.
type Prober interface {
	Probe(cat record.Category, id string) store.Probe
}

// Oracle decides staleness of a stored copy against the remote signal.
type Oracle interface {
	Stale(storedAsOf time.Time, remoteUpdatedAt string) bool
}

// Fetcher performs one retrieval, committing on success.
type Fetcher interface {
	Fetch(ctx context.Context, desc record.Descriptor) error
}

// Outcome is the terminal state of one work item.
type Outcome string

const (
	OutcomeFetched         Outcome = "fetched"
	OutcomeNetworkError    Outcome = "network_error"
	OutcomeInvalidResponse Outcome = "invalid_response"
	OutcomeStoreError      Outcome = "store_error"
)

// Attempt describes one completed fetch attempt, for the run catalog.
type Attempt struct {
	Descriptor record.Descriptor
	Reason     record.Reason
	Outcome    Outcome
	Err        string
	Duration   time.Duration
	At         time.Time
}

// Recorder receives one Attempt per completed work item. Implementations
// must tolerate concurrent calls.
type Recorder interface {
	Record(ctx context.Context, a Attempt)
}

// Config configures a run.
type Config struct {
	// MaxConcurrent is the hard cap on in-flight fetches. Default: 10.
	MaxConcurrent int
	// Recorder, when set, is notified of every completed attempt.
	Recorder Recorder
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ErrNoDescriptors means the run had no input and could not proceed.
var ErrNoDescriptors = errors.New("scheduler: no descriptors")

// Scheduler runs the incremental fetch engine.
type Scheduler struct {
	store  Prober
	oracle Oracle
	fetch  Fetcher
	pace   *jitter.Policy
	config Config
}

// New creates a Scheduler. pace may be nil, in which case default jitter
// bounds apply.
func New(st Prober, oracle Oracle, fetch Fetcher, pace *jitter.Policy, cfg Config) *Scheduler {
	cfg.defaults()
	if pace == nil {
		pace = jitter.New(jitter.Config{})
	}
	return &Scheduler{store: st, oracle: oracle, fetch: fetch, pace: pace, config: cfg}
}

// Triage selects the work list in one no-network pass: absent or invalid
// store entries are fetched as new, valid-but-stale entries as stale, the
// rest are skipped. At most one WorkItem per (category, id) is produced;
// duplicate descriptors are dropped.
func (s *Scheduler) Triage(descs []record.Descriptor) ([]record.WorkItem, *record.Summary) {
	summary := &record.Summary{}
	seen := make(map[string]struct{}, len(descs))
	var items []record.WorkItem

	for _, d := range descs {
		summary.Considered++
		key := d.Key()
		if _, dup := seen[key]; dup {
			s.config.Logger.Debug("triage: duplicate descriptor", "key", key)
			continue
		}
		seen[key] = struct{}{}

		p := s.store.Probe(d.Category, d.ID)
		switch p.State {
		case store.Absent, store.Invalid:
			items = append(items, record.WorkItem{Descriptor: d, Reason: record.ReasonNew})
		case store.Valid:
			if s.oracle.Stale(p.AsOf, d.RemoteUpdatedAt) {
				items = append(items, record.WorkItem{Descriptor: d, Reason: record.ReasonStale})
			} else {
				summary.SkippedFresh++
			}
		}
	}
	return items, summary
}

// Run executes one full run: triage, then batched dispatch until every work
// item has a terminal outcome or ctx is cancelled. Per-item failures never
// abort the run; they are tallied in the summary. On cancellation no new
// item is dispatched, in-flight fetches drain, and the summary reflecting
// completed work is still returned alongside ctx.Err().
func (s *Scheduler) Run(ctx context.Context, descs []record.Descriptor) (*record.Summary, error) {
	if len(descs) == 0 {
		return nil, ErrNoDescriptors
	}

	items, summary := s.Triage(descs)
	s.config.Logger.Info("triage complete",
		"considered", summary.Considered,
		"skipped_fresh", summary.SkippedFresh,
		"to_fetch", len(items),
	)
	if len(items) == 0 {
		return summary, nil
	}

	s.pace.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

	sem := make(chan struct{}, s.config.MaxConcurrent)
	var mu sync.Mutex

	remaining := items
	batchNum := 0
	for len(remaining) > 0 && ctx.Err() == nil {
		n := s.pace.BatchSize(len(remaining))
		batch := remaining[:n]
		remaining = remaining[n:]
		batchNum++

		s.config.Logger.Info("dispatching batch",
			"batch", batchNum, "size", n, "remaining", len(remaining))

		start := time.Now()
		s.dispatchBatch(ctx, batch, sem, &mu, summary)
		s.config.Logger.Debug("batch complete",
			"batch", batchNum, "elapsed", time.Since(start).Round(100*time.Millisecond))

		if len(remaining) > 0 && ctx.Err() == nil {
			delay := s.pace.Delay()
			s.config.Logger.Debug("pacing delay", "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	if err := ctx.Err(); err != nil {
		s.config.Logger.Warn("run cancelled", "undispatched", len(remaining))
		return summary, fmt.Errorf("scheduler: run cancelled: %w", err)
	}
	return summary, nil
}

// dispatchBatch starts the batch's work items, each gated by the global
// semaphore, and waits for all of them. Items not yet dispatched when ctx is
// cancelled are left for the next run.
func (s *Scheduler) dispatchBatch(ctx context.Context, batch []record.WorkItem, sem chan struct{}, mu *sync.Mutex, summary *record.Summary) {
	var wg sync.WaitGroup
	for _, item := range batch {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}
		wg.Add(1)
		go func(it record.WorkItem) {
			defer wg.Done()
			defer func() { <-sem }()
			s.process(ctx, it, mu, summary)
		}(item)
	}
	wg.Wait()
}

// process runs one work item to its terminal state and folds the outcome
// into the summary.
func (s *Scheduler) process(ctx context.Context, it record.WorkItem, mu *sync.Mutex, summary *record.Summary) {
	start := time.Now()
	err := s.fetch.Fetch(ctx, it.Descriptor)
	elapsed := time.Since(start)

	outcome := OutcomeFetched
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		outcome = OutcomeNetworkError
		var fe *fetcher.Error
		if errors.As(err, &fe) {
			switch fe.Kind {
			case fetcher.KindInvalid:
				outcome = OutcomeInvalidResponse
			case fetcher.KindStore:
				outcome = OutcomeStoreError
			}
		}
		s.config.Logger.Warn("fetch failed",
			"key", it.Descriptor.Key(), "reason", it.Reason, "outcome", outcome, "error", err)
	}

	mu.Lock()
	switch {
	case err == nil && it.Reason == record.ReasonNew:
		summary.FetchedNew++
	case err == nil:
		summary.FetchedUpdated++
	default:
		summary.Failed++
		switch outcome {
		case OutcomeNetworkError:
			summary.NetworkErrors++
		case OutcomeInvalidResponse:
			summary.InvalidResponses++
		case OutcomeStoreError:
			summary.StoreErrors++
		}
	}
	mu.Unlock()

	if s.config.Recorder != nil {
		s.config.Recorder.Record(ctx, Attempt{
			Descriptor: it.Descriptor,
			Reason:     it.Reason,
			Outcome:    outcome,
			Err:        errMsg,
			Duration:   elapsed,
			At:         start,
		})
	}
}
