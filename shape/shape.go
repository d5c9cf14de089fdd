// Package shape joins stored KML geometry with extracted proposal attributes
// into GeoJSON feature collections.
package shape

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/veldtlabs/ecocat/parse"
	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/store"
)

// Features converts one KML document into GeoJSON features carrying props.
// Placemarks without usable geometry are dropped.
func Features(kmlData []byte, props map[string]any) ([]*geojson.Feature, error) {
	pms, err := placemarks(kmlData)
	if err != nil {
		return nil, err
	}

	var out []*geojson.Feature
	for _, pm := range pms {
		g := pm.geometry()
		if g == nil {
			continue
		}
		f := geojson.NewFeature(g)
		f.Properties = make(geojson.Properties, len(props)+2)
		for k, v := range props {
			f.Properties[k] = v
		}
		if pm.Name != "" {
			f.Properties["kml_name"] = pm.Name
		}
		if pm.Description != "" {
			f.Properties["kml_description"] = pm.Description
		}
		out = append(out, f)
	}
	return out, nil
}

// FromCSV builds a feature collection from a parse-step CSV: every row with
// KML URLs contributes its stored geometry files, each feature carrying the
// row's full attribute set. Missing or unparseable KML files are logged and
// skipped; the collection is built from whatever is available.
func FromCSV(csvPath string, st *store.Store, logger *slog.Logger) (*geojson.FeatureCollection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("shape: open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("shape: read csv header: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	projects := 0
	for {
		line, err := r.Read()
		if err != nil {
			break
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(line) {
				row[col] = line[i]
			}
		}
		projectID, _ := row["ID"].(string)
		kmlField, _ := row["KML URLs"].(string)
		if projectID == "" || kmlField == "" {
			continue
		}

		added := false
		for _, u := range splitURLs(kmlField) {
			id := projectID + "/" + parse.KMLKey(u)
			data, err := st.Read(record.CategoryGeometry, id)
			if err != nil {
				logger.Warn("shape: KML not in store, skipping", "key", id)
				continue
			}
			feats, err := Features(data, row)
			if err != nil {
				logger.Warn("shape: bad KML, skipping", "key", id, "error", err)
				continue
			}
			for _, feat := range feats {
				fc.Append(feat)
				added = true
			}
		}
		if added {
			projects++
		}
	}

	logger.Info("shape complete", "projects", projects, "features", len(fc.Features))
	return fc, nil
}

func splitURLs(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ";") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// WriteFile writes a feature collection as indented GeoJSON.
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("shape: mkdir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("shape: marshal geojson: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("shape: write %s: %w", path, err)
	}
	return nil
}
