// Package store persists fetched record payloads as one file per
// (category, id) key under a common root.
//
// The layout is deliberately plain — <root>/<category>/<id>.json (.kml for
// geometry attachments) — so downstream steps can consume records with a
// directory walk. Commits go through a temp file and an atomic rename; a
// reader never observes a partial write.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/veldtlabs/ecocat/record"
)

// State classifies what Probe found for a key.
type State int

const (
	// Absent means no file exists for the key.
	Absent State = iota
	// Invalid means a file exists but fails payload validation. Treated the
	// same as Absent by triage: the record needs fetching.
	Invalid
	// Valid means a well-formed payload is stored.
	Valid
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Invalid:
		return "invalid"
	case Valid:
		return "valid"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Probe is the result of probing one key. AsOf is the local freshness marker
// (file mtime) and is only meaningful when State is Valid.
type Probe struct {
	State State
	AsOf  time.Time
}

// Validator checks that a payload is structurally acceptable for storage.
type Validator func([]byte) error

// ErrInvalidPayload is wrapped by Commit when the payload fails validation.
var ErrInvalidPayload = errors.New("store: invalid payload")

// ValidateJSON accepts well-formed JSON that is semantically non-empty: an
// object must have at least one key; null and blank bodies are rejected.
func ValidateJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty body")
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if v == nil {
		return fmt.Errorf("JSON null")
	}
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return fmt.Errorf("empty JSON object")
	}
	return nil
}

// ValidateKML accepts documents that carry a KML or Placemark tag, matching
// the loose check the portal's geometry downloads warrant (they are often
// served without a content type).
func ValidateKML(data []byte) error {
	lower := strings.ToLower(string(data))
	if !strings.Contains(lower, "<kml") && !strings.Contains(lower, "<placemark") {
		return fmt.Errorf("no KML markup found")
	}
	return nil
}

// Store is a file-backed record store. Safe for concurrent use: commits to
// different keys are independent, and the rename discipline makes same-key
// races harmless.
type Store struct {
	root       string
	validators map[record.Category]Validator
}

// Option customises a Store.
type Option func(*Store)

// WithValidator overrides the payload validator for a category.
func WithValidator(cat record.Category, v Validator) Option {
	return func(s *Store) { s.validators[cat] = v }
}

// New creates the store root and returns a Store. JSON validation applies to
// proposal categories, KML validation to geometry attachments.
func New(root string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	s := &Store{
		root: root,
		validators: map[record.Category]Validator{
			record.CategoryGeometry: ValidateKML,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Root returns the store root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory holding one category's records.
func (s *Store) Dir(cat record.Category) string {
	return filepath.Join(s.root, string(cat))
}

// Path returns the file path for a key. IDs may contain slashes (KML
// attachments nest under their project ID) but never path escapes.
func (s *Store) Path(cat record.Category, id string) string {
	return filepath.Join(s.Dir(cat), id+s.ext(cat))
}

func (s *Store) ext(cat record.Category) string {
	if cat == record.CategoryGeometry {
		return ".kml"
	}
	return ".json"
}

func (s *Store) validator(cat record.Category) Validator {
	if v, ok := s.validators[cat]; ok {
		return v
	}
	return ValidateJSON
}

func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("store: empty id")
	}
	for _, part := range strings.Split(id, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("store: unsafe id %q", id)
		}
	}
	return nil
}

// Probe reports whether a valid payload is stored for the key, without the
// caller having to re-fetch. Existence is a stat; validity requires reading
// and validating the payload. Read errors map to Invalid so the record is
// simply re-selected for fetching.
func (s *Store) Probe(cat record.Category, id string) Probe {
	if err := checkID(id); err != nil {
		return Probe{State: Invalid}
	}
	path := s.Path(cat, id)
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Probe{State: Absent}
	}
	if err != nil || fi.Size() == 0 {
		return Probe{State: Invalid}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Probe{State: Invalid}
	}
	if err := s.validator(cat)(data); err != nil {
		return Probe{State: Invalid}
	}
	return Probe{State: Valid, AsOf: fi.ModTime()}
}

// Read returns the stored payload for a key.
func (s *Store) Read(cat record.Category, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(cat, id))
	if err != nil {
		return nil, fmt.Errorf("store: read %s/%s: %w", cat, id, err)
	}
	return data, nil
}

// Commit durably writes a payload for the key. The payload is validated
// first, written to a temp file in the destination directory, then renamed
// into place; a crash mid-write leaves the previous state visible to Probe.
func (s *Store) Commit(cat record.Category, id string, payload []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.validator(cat)(payload); err != nil {
		return fmt.Errorf("%w: %s/%s: %s", ErrInvalidPayload, cat, id, err)
	}

	path := s.Path(cat, id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	// The dot prefix keeps directory walkers from picking it up.
	tmp, err := os.CreateTemp(dir, ".commit-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// Walk calls fn for every stored record of a category, passing the key's ID
// (relative, without extension) and file path. Temp files and foreign
// extensions are skipped. A missing category directory is not an error.
func (s *Store) Walk(cat record.Category, fn func(id, path string) error) error {
	dir := s.Dir(cat)
	ext := s.ext(cat)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.ToSlash(rel), ext)
		return fn(id, path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
