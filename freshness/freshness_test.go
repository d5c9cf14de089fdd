package freshness

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestStaleBasicOrdering(t *testing.T) {
	o := New(time.UTC, nil)
	stored := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if !o.Stale(stored, "2024-06-02 09:00:00") {
		t.Error("remote after stored should be stale")
	}
	if o.Stale(stored, "2024-05-30 09:00:00") {
		t.Error("remote before stored should be fresh")
	}
	if o.Stale(stored, "2024-06-01 12:00:00") {
		t.Error("equal timestamps should be fresh")
	}
}

func TestStaleBlankRemote(t *testing.T) {
	// WHAT: No remote signal means the stored copy stays fresh.
	// WHY: Refetching everything whenever the listing omits timestamps would
	// defeat incrementality.
	o := New(time.UTC, nil)
	stored := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if o.Stale(stored, "") {
		t.Error("blank remote timestamp should be fresh")
	}
	if o.Stale(stored, "   ") {
		t.Error("whitespace remote timestamp should be fresh")
	}
}

func TestStaleUnparseableFailsOpen(t *testing.T) {
	// WHAT: An unparseable timestamp reports fresh, not stale.
	// WHY: One malformed listing value must not trigger a refetch storm.
	o := New(time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stored := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, v := range []string{"yesterday", "31/31/2024", "n/a"} {
		if o.Stale(stored, v) {
			t.Errorf("unparseable %q should be fresh", v)
		}
	}
}

func TestStaleNaiveTimestampUsesLocation(t *testing.T) {
	// WHAT: Zone-less timestamps are read in the configured location before
	// the UTC comparison.
	// WHY: The portal reports naive IST; comparing it as UTC would shift every
	// record 5.5 hours and misclassify edge cases.
	ist := time.FixedZone("IST", 5*3600+1800)
	o := New(ist, nil)

	// 2024-06-01 10:00 IST is 04:30 UTC. A copy stored at 05:00 UTC is fresh.
	stored := time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC)
	if o.Stale(stored, "2024-06-01T10:00:00") {
		t.Error("copy stored after the remote instant should be fresh")
	}
	// A copy stored at 04:00 UTC predates it.
	if !o.Stale(stored.Add(-time.Hour), "2024-06-01T10:00:00") {
		t.Error("copy stored before the remote instant should be stale")
	}
}

func TestStaleLayoutVariants(t *testing.T) {
	o := New(time.UTC, nil)
	stored := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, v := range []string{
		"2024-06-01T10:00:00Z",
		"2024-06-01T10:00:00",
		"2024-06-01 10:00:00",
		"01/06/2024 10:00:00",
		"01-06-2024 10:00:00",
		"2024-06-01",
		"01/06/2024",
	} {
		if !o.Stale(stored, v) {
			t.Errorf("layout %q should parse and mark stale", v)
		}
	}
}

func TestNewNilLocationDefaults(t *testing.T) {
	o := New(nil, nil)
	if o.loc == nil {
		t.Fatal("location should default")
	}
}
