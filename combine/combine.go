// Package combine merges the per-state GeoJSON outputs into one national
// feature collection, dropping invalid geometry on the way.
package combine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Stats summarises one combine pass.
type Stats struct {
	Files    int
	Features int
	Dropped  int
	ByState  map[string]int
	ByType   map[string]int
}

// Files lists the GeoJSON inputs under dir, sorted for deterministic output.
func Files(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, fmt.Errorf("combine: glob %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Combine reads every input collection and merges the valid features.
// Unreadable files are logged and skipped rather than failing the pass —
// one bad state export must not block the national dataset. Each feature is
// annotated with its source file, and with a state code when the file
// follows the Projects_<code>.geojson convention.
func Combine(paths []string, logger *slog.Logger) (*geojson.FeatureCollection, *Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("combine: no input files")
	}

	out := geojson.NewFeatureCollection()
	stats := &Stats{
		ByState: make(map[string]int),
		ByType:  make(map[string]int),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("combine: unreadable input, skipping", "path", path, "error", err)
			continue
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			logger.Warn("combine: malformed GeoJSON, skipping", "path", path, "error", err)
			continue
		}
		stats.Files++

		source := filepath.Base(path)
		state := stateCode(source)
		kept := 0
		for _, f := range fc.Features {
			if f == nil || !validGeometry(f.Geometry) {
				stats.Dropped++
				continue
			}
			if f.Properties == nil {
				f.Properties = make(geojson.Properties, 2)
			}
			f.Properties["source_file"] = source
			if state != "" {
				f.Properties["state_code"] = state
				stats.ByState[state]++
			}
			stats.ByType[f.Geometry.GeoJSONType()]++
			out.Append(f)
			kept++
		}
		stats.Features += kept
		logger.Info("combine: merged", "path", path, "features", kept)
	}

	if stats.Files == 0 {
		return nil, nil, fmt.Errorf("combine: no readable input files")
	}
	return out, stats, nil
}

// stateCode extracts the state code from Projects_<code>.geojson filenames.
func stateCode(filename string) string {
	if !strings.HasPrefix(filename, "Projects_") || !strings.HasSuffix(filename, ".geojson") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(filename, "Projects_"), ".geojson")
}

// validGeometry applies the same structural checks the dataset has always
// shipped with: enough points for the type, rings of at least four points.
func validGeometry(g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.Point:
		return true
	case orb.LineString:
		return len(geom) >= 2
	case orb.Polygon:
		return len(geom) >= 1 && len(geom[0]) >= 4
	case orb.MultiPoint:
		return len(geom) > 0
	case orb.MultiLineString:
		if len(geom) == 0 {
			return false
		}
		for _, line := range geom {
			if len(line) < 2 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return false
		}
		for _, poly := range geom {
			if len(poly) < 1 {
				return false
			}
		}
		return true
	}
	return false
}

// WriteFile writes the combined collection as indented GeoJSON.
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("combine: mkdir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("combine: marshal geojson: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("combine: write %s: %w", path, err)
	}
	return nil
}
