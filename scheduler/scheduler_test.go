package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/veldtlabs/ecocat/fetcher"
	"github.com/veldtlabs/ecocat/jitter"
	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/store"
)

// neverStale treats every stored copy as fresh.
type neverStale struct{}

func (neverStale) Stale(time.Time, string) bool { return false }

// alwaysStale treats every stored copy as outdated.
type alwaysStale struct{}

func (alwaysStale) Stale(time.Time, string) bool { return true }

// mockFetcher commits a canned payload through the store, failing the IDs in
// fail. It tracks concurrency so tests can assert the dispatch cap.
type mockFetcher struct {
	store *store.Store
	fail  map[string]error
	delay time.Duration

	calls    atomic.Int32
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (m *mockFetcher) Fetch(ctx context.Context, desc record.Descriptor) error {
	m.calls.Add(1)
	cur := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		prev := m.maxSeen.Load()
		if cur <= prev || m.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return &fetcher.Error{Kind: fetcher.KindNetwork, Descriptor: desc, Err: ctx.Err()}
		}
	}
	if err, ok := m.fail[desc.ID]; ok {
		return err
	}
	return m.store.Commit(desc.Category, desc.ID, []byte(fmt.Sprintf(`{"id": %q}`, desc.ID)))
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func fastPace() *jitter.Policy {
	return jitter.NewWithRand(jitter.Config{
		MinBatch: 5, MaxBatch: 20,
		MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond,
	}, rand.New(rand.NewSource(1)))
}

func quietConfig() Config {
	return Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func descriptors(n int) []record.Descriptor {
	descs := make([]record.Descriptor, n)
	for i := range descs {
		descs[i] = record.Descriptor{ID: fmt.Sprintf("%d", i), Category: record.CategoryEnvironment}
	}
	return descs
}

func TestRunFetchesEverythingOnce(t *testing.T) {
	// WHAT: First run fetches all 90 absent records and skips the 10 already
	// stored; the repeated run does zero fetch work.
	// WHY: Incrementality is the engine's core contract.
	st := testStore(t)
	descs := descriptors(100)
	for i := 90; i < 100; i++ {
		if err := st.Commit(record.CategoryEnvironment, descs[i].ID, []byte(`{"pre": true}`)); err != nil {
			t.Fatal(err)
		}
	}

	mf := &mockFetcher{store: st}
	s := New(st, neverStale{}, mf, fastPace(), quietConfig())

	sum, err := s.Run(context.Background(), descs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := record.Summary{Considered: 100, SkippedFresh: 10, FetchedNew: 90}
	if *sum != want {
		t.Errorf("summary: got %+v, want %+v", *sum, want)
	}
	if n := mf.calls.Load(); n != 90 {
		t.Errorf("fetch calls: got %d, want 90", n)
	}

	// Second run: everything is stored and fresh.
	mf2 := &mockFetcher{store: st}
	s2 := New(st, neverStale{}, mf2, fastPace(), quietConfig())
	sum2, err := s2.Run(context.Background(), descs)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum2.SkippedFresh != 100 || sum2.FetchedNew != 0 || sum2.Failed != 0 {
		t.Errorf("second run summary: got %+v", *sum2)
	}
	if n := mf2.calls.Load(); n != 0 {
		t.Errorf("second run fetch calls: got %d, want 0", n)
	}
}

func TestRunRefetchesStale(t *testing.T) {
	st := testStore(t)
	descs := descriptors(5)
	for _, d := range descs {
		if err := st.Commit(d.Category, d.ID, []byte(`{"old": true}`)); err != nil {
			t.Fatal(err)
		}
	}

	mf := &mockFetcher{store: st}
	s := New(st, alwaysStale{}, mf, fastPace(), quietConfig())
	sum, err := s.Run(context.Background(), descs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.FetchedUpdated != 5 || sum.FetchedNew != 0 {
		t.Errorf("summary: got %+v", *sum)
	}
}

func TestRunBoundedConcurrency(t *testing.T) {
	// WHAT: In-flight fetches never exceed MaxConcurrent, across batches.
	st := testStore(t)
	mf := &mockFetcher{store: st, delay: 5 * time.Millisecond}
	cfg := quietConfig()
	cfg.MaxConcurrent = 3
	s := New(st, neverStale{}, mf, fastPace(), cfg)

	if _, err := s.Run(context.Background(), descriptors(40)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if peak := mf.maxSeen.Load(); peak > 3 {
		t.Errorf("peak concurrency %d exceeds cap 3", peak)
	}
}

func TestRunTalliesFailures(t *testing.T) {
	// WHAT: A persistently malformed record counts as one failure and is
	// selected again on the next run.
	// WHY: Failures must not poison the run, and must not be forgotten either.
	st := testStore(t)
	descs := descriptors(10)
	badDesc := descs[3]
	mf := &mockFetcher{store: st, fail: map[string]error{
		badDesc.ID: &fetcher.Error{Kind: fetcher.KindInvalid, Descriptor: badDesc, Err: errors.New("empty JSON object")},
	}}
	s := New(st, neverStale{}, mf, fastPace(), quietConfig())

	sum, err := s.Run(context.Background(), descs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.FetchedNew != 9 || sum.Failed != 1 || sum.InvalidResponses != 1 {
		t.Errorf("summary: got %+v", *sum)
	}

	// Nothing was stored for the bad record, so the next triage re-selects it.
	items, _ := s.Triage(descs)
	if len(items) != 1 || items[0].Descriptor.ID != badDesc.ID {
		t.Errorf("re-triage: got %+v, want just %s", items, badDesc.ID)
	}
}

func TestRunClassifiesFailureKinds(t *testing.T) {
	st := testStore(t)
	descs := descriptors(3)
	mf := &mockFetcher{store: st, fail: map[string]error{
		"0": &fetcher.Error{Kind: fetcher.KindNetwork, Err: errors.New("http 500")},
		"1": &fetcher.Error{Kind: fetcher.KindInvalid, Err: errors.New("bad body")},
		"2": &fetcher.Error{Kind: fetcher.KindStore, Err: errors.New("disk full")},
	}}
	s := New(st, neverStale{}, mf, fastPace(), quietConfig())

	sum, err := s.Run(context.Background(), descs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.NetworkErrors != 1 || sum.InvalidResponses != 1 || sum.StoreErrors != 1 || sum.Failed != 3 {
		t.Errorf("summary: got %+v", *sum)
	}
}

func TestRunNoDescriptors(t *testing.T) {
	st := testStore(t)
	s := New(st, neverStale{}, &mockFetcher{store: st}, fastPace(), quietConfig())
	if _, err := s.Run(context.Background(), nil); !errors.Is(err, ErrNoDescriptors) {
		t.Errorf("got %v, want ErrNoDescriptors", err)
	}
}

func TestTriageDeduplicates(t *testing.T) {
	st := testStore(t)
	s := New(st, neverStale{}, &mockFetcher{store: st}, fastPace(), quietConfig())

	d := record.Descriptor{ID: "1", Category: record.CategoryEnvironment}
	items, sum := s.Triage([]record.Descriptor{d, d, d})
	if len(items) != 1 {
		t.Errorf("got %d work items, want 1", len(items))
	}
	if sum.Considered != 3 {
		t.Errorf("considered: got %d, want 3", sum.Considered)
	}
}

func TestRunCancellation(t *testing.T) {
	// WHAT: Cancelling mid-run stops dispatch, drains in-flight work, and
	// still returns the partial summary.
	st := testStore(t)
	mf := &mockFetcher{store: st, delay: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	rec := recorderFunc(func(context.Context, Attempt) {
		once.Do(cancel)
	})
	cfg := quietConfig()
	cfg.MaxConcurrent = 2
	cfg.Recorder = rec
	s := New(st, neverStale{}, mf, fastPace(), cfg)

	sum, err := s.Run(ctx, descriptors(100))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if sum == nil {
		t.Fatal("summary should be returned on cancellation")
	}
	done := sum.FetchedNew + sum.Failed
	if done == 0 || done == 100 {
		t.Errorf("expected a partial run, got %d completed", done)
	}
}

type recorderFunc func(context.Context, Attempt)

func (f recorderFunc) Record(ctx context.Context, a Attempt) { f(ctx, a) }

func TestRunNotifiesRecorder(t *testing.T) {
	st := testStore(t)
	var mu sync.Mutex
	var attempts []Attempt
	cfg := quietConfig()
	cfg.Recorder = recorderFunc(func(_ context.Context, a Attempt) {
		mu.Lock()
		attempts = append(attempts, a)
		mu.Unlock()
	})

	mf := &mockFetcher{store: st, fail: map[string]error{
		"2": &fetcher.Error{Kind: fetcher.KindNetwork, Err: errors.New("boom")},
	}}
	s := New(st, neverStale{}, mf, fastPace(), cfg)
	if _, err := s.Run(context.Background(), descriptors(5)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(attempts) != 5 {
		t.Fatalf("got %d attempts, want 5", len(attempts))
	}
	outcomes := map[Outcome]int{}
	for _, a := range attempts {
		outcomes[a.Outcome]++
	}
	if outcomes[OutcomeFetched] != 4 || outcomes[OutcomeNetworkError] != 1 {
		t.Errorf("outcomes: got %v", outcomes)
	}
}
