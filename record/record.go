// Package record defines the domain types shared across the catalog pipeline:
// clearance categories, record descriptors, work items and run summaries.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Category identifies one of the portal's clearance types. Record IDs are
// unique only within a category; the store partitions by it.
type Category string

const (
	// CategoryEnvironment is an environmental clearance proposal (EC).
	CategoryEnvironment Category = "ec"
	// CategoryForest is a forest clearance proposal (FC).
	CategoryForest Category = "fc"
	// CategoryWildlife is a wildlife clearance proposal (WL).
	CategoryWildlife Category = "wl"
	// CategoryCoastal is a coastal regulation zone proposal (CRZ).
	CategoryCoastal Category = "crz"
	// CategoryGeometry holds KML geometry attachments referenced by proposals.
	CategoryGeometry Category = "kml"
)

// Proposal categories, in a stable order. CategoryGeometry is excluded: it is
// fetched by the shape step, not listed by the search API.
var proposalCategories = []Category{
	CategoryEnvironment, CategoryForest, CategoryWildlife, CategoryCoastal,
}

// ProposalCategories returns the clearance types served by the search API.
func ProposalCategories() []Category {
	out := make([]Category, len(proposalCategories))
	copy(out, proposalCategories)
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEnvironment, CategoryForest, CategoryWildlife, CategoryCoastal, CategoryGeometry:
		return true
	}
	return false
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("record: unknown category %q", s)
	}
	return c, nil
}

// Descriptor identifies one remote record independent of its fetched content.
// It is produced fresh each run by the listing step and never persisted by
// the engine.
type Descriptor struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	// RemoteUpdatedAt is the portal-reported last-update timestamp, verbatim.
	// Empty when the listing step has no signal for this record.
	RemoteUpdatedAt string `json:"remote_updated_at,omitempty"`
	// URL overrides the endpoint template for records whose download
	// location cannot be derived from the ID (KML attachments).
	URL string `json:"url,omitempty"`
}

// Key returns the store key "<category>/<id>".
func (d Descriptor) Key() string {
	return string(d.Category) + "/" + d.ID
}

// Reason records why a descriptor was selected for fetching.
type Reason string

const (
	// ReasonNew marks a record with no valid stored copy.
	ReasonNew Reason = "new"
	// ReasonStale marks a record whose stored copy predates the remote update.
	ReasonStale Reason = "stale"
)

// WorkItem is one unit of fetch work, produced by triage and consumed exactly
// once within a run.
type WorkItem struct {
	Descriptor Descriptor
	Reason     Reason
}

// Summary aggregates the outcome counters of one run. It is built
// incrementally during the run and emitted once at the end.
type Summary struct {
	Considered     int `json:"considered"`
	SkippedFresh   int `json:"skipped_fresh"`
	FetchedNew     int `json:"fetched_new"`
	FetchedUpdated int `json:"fetched_updated"`
	Failed         int `json:"failed"`

	// Failure breakdown.
	NetworkErrors    int `json:"network_errors"`
	InvalidResponses int `json:"invalid_responses"`
	StoreErrors      int `json:"store_errors"`
}

// ErrNoDescriptors is returned when a descriptor file exists but holds no
// usable entries.
var ErrNoDescriptors = errors.New("record: no descriptors")

// ReadDescriptorFile loads a JSON descriptor list written by the listing or
// parse steps. Entries with a missing ID or unknown category are rejected.
func ReadDescriptorFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("record: read descriptor file: %w", err)
	}
	var descs []Descriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		return nil, fmt.Errorf("record: parse descriptor file %s: %w", path, err)
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDescriptors, path)
	}
	for i, d := range descs {
		if d.ID == "" {
			return nil, fmt.Errorf("record: descriptor %d in %s has no id", i, path)
		}
		if !d.Category.Valid() {
			return nil, fmt.Errorf("record: descriptor %d in %s: unknown category %q", i, path, d.Category)
		}
	}
	return descs, nil
}

// WriteDescriptorFile writes a descriptor list, creating parent directories
// as needed.
func WriteDescriptorFile(path string, descs []Descriptor) error {
	data, err := json.MarshalIndent(descs, "", "  ")
	if err != nil {
		return fmt.Errorf("record: marshal descriptors: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("record: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("record: write descriptor file: %w", err)
	}
	return nil
}
