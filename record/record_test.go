package record

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"ec", "fc", "wl", "crz", "kml"} {
		cat, err := ParseCategory(s)
		if err != nil {
			t.Errorf("ParseCategory(%q): %v", s, err)
		}
		if string(cat) != s {
			t.Errorf("ParseCategory(%q): got %q", s, cat)
		}
	}
	if _, err := ParseCategory("mining"); err == nil {
		t.Error("unknown category should be rejected")
	}
	if _, err := ParseCategory(""); err == nil {
		t.Error("empty category should be rejected")
	}
}

func TestProposalCategoriesExcludesGeometry(t *testing.T) {
	// WHAT: The search API only serves clearance proposals; KML attachments
	// come from the parse step.
	for _, cat := range ProposalCategories() {
		if cat == CategoryGeometry {
			t.Fatal("geometry category must not be listed")
		}
	}
	if len(ProposalCategories()) != 4 {
		t.Errorf("got %d proposal categories, want 4", len(ProposalCategories()))
	}
}

func TestDescriptorKey(t *testing.T) {
	d := Descriptor{ID: "12345", Category: CategoryEnvironment}
	if got := d.Key(); got != "ec/12345" {
		t.Errorf("Key: got %q", got)
	}
}

func TestDescriptorFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "descriptors.json")
	in := []Descriptor{
		{ID: "1", Category: CategoryEnvironment, RemoteUpdatedAt: "2024-01-02 10:00:00"},
		{ID: "2", Category: CategoryForest},
		{ID: "p1/ref_abcd1234", Category: CategoryGeometry, URL: "https://example.com/a.kml"},
	}
	if err := WriteDescriptorFile(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := ReadDescriptorFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d descriptors, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("descriptor %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestReadDescriptorFileRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := WriteDescriptorFile(empty, []Descriptor{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadDescriptorFile(empty); !errors.Is(err, ErrNoDescriptors) {
		t.Errorf("empty list: got %v, want ErrNoDescriptors", err)
	}

	noID := filepath.Join(dir, "noid.json")
	if err := WriteDescriptorFile(noID, []Descriptor{{Category: CategoryEnvironment}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadDescriptorFile(noID); err == nil {
		t.Error("descriptor without id should be rejected")
	}

	badCat := filepath.Join(dir, "badcat.json")
	if err := WriteDescriptorFile(badCat, []Descriptor{{ID: "1", Category: "mining"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadDescriptorFile(badCat); err == nil {
		t.Error("unknown category should be rejected")
	}

	if _, err := ReadDescriptorFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should be an error")
	}
}
