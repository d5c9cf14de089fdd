// Package parse extracts tabular data from stored detail payloads.
//
// The portal answers most detail requests with JSON but occasionally serves
// an XML rendering of the same record; both are handled. Output is one CSV
// row per proposal plus a descriptor list for the KML attachments the
// payloads reference, which the fetch engine downloads in a second run.
package parse

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/store"
)

// Config configures the parser.
type Config struct {
	// ProposalURLTemplate builds the public report link; {id} is expanded.
	ProposalURLTemplate string
	// DocumentURLTemplate builds download links for referenced documents.
	// Expanded placeholders: {mapping}, {ref}, {type}, {uuid}, {version}.
	DocumentURLTemplate string
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ProposalURLTemplate == "" {
		c.ProposalURLTemplate = "https://parivesh.nic.in/newupgrade/#/report/ec?proposalId={id}"
	}
	if c.DocumentURLTemplate == "" {
		c.DocumentURLTemplate = "https://parivesh.nic.in/dms/okm/downloadDocument?docTypemappingId={mapping}&refId={ref}&refType={type}&uuid={uuid}&version={version}"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Row is the extracted data for one proposal.
type Row struct {
	ID      string
	Values  map[string]string
	KMLURLs []string
}

// Parser reads stored payloads and produces CSV rows.
type Parser struct {
	store  *store.Store
	config Config
}

// New creates a Parser over st.
func New(st *store.Store, cfg Config) *Parser {
	cfg.defaults()
	return &Parser{store: st, config: cfg}
}

// Rows walks one category of the store and extracts a row per record. Rows
// without a proposal number are dropped, matching the published dataset.
// Output is sorted by application date, newest first.
func (p *Parser) Rows(cat record.Category) ([]Row, error) {
	var rows []Row
	err := p.store.Walk(cat, func(id, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		row := p.extract(data, id)
		if row.Values["Proposal Number"] == "" {
			p.config.Logger.Debug("parse: no proposal number, dropping", "key", cat, "id", id)
			return nil
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse: walk %s: %w", cat, err)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Values["Application Date"] > rows[j].Values["Application Date"]
	})
	return rows, nil
}

func (p *Parser) extract(data []byte, id string) Row {
	row := Row{ID: id, Values: make(map[string]string)}

	if json.Valid(data) {
		for _, f := range detailFields {
			r := gjson.GetBytes(data, f.Path)
			if r.Exists() && r.Type != gjson.Null {
				row.Values[f.Name] = sanitize(r.String())
			}
		}
		row.KMLURLs = p.kmlURLs(data)
		if len(row.KMLURLs) > 0 {
			row.Values["KML URLs"] = strings.Join(row.KMLURLs, ";")
		}
		if u := p.documentURL(gjson.GetBytes(data, "data.proponentApplications.ecEnclosures.eia_final_copy")); u != "" {
			row.Values["EIA Report PDF"] = u
		}
		if u := p.documentURL(gjson.GetBytes(data, "data.clearence.fcOthersDetail.cost_benefit_report")); u != "" {
			row.Values["Cost Benefit Report PDF"] = u
		}
	} else {
		p.extractXML(data, row.Values)
	}

	row.Values["proposal_url"] = strings.ReplaceAll(p.config.ProposalURLTemplate, "{id}", url.QueryEscape(id))
	return row
}

// documentURL builds a download link from a document reference object. All
// five identifying fields must be present.
func (p *Parser) documentURL(doc gjson.Result) string {
	if !doc.IsObject() {
		return ""
	}
	fields := map[string]string{
		"mapping": doc.Get("document_mapping_id").String(),
		"ref":     doc.Get("ref_id").String(),
		"type":    doc.Get("type").String(),
		"uuid":    doc.Get("uuid").String(),
		"version": doc.Get("version").String(),
	}
	out := p.config.DocumentURLTemplate
	for k, v := range fields {
		if v == "" {
			return ""
		}
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// kmlURLs harvests the KML attachment links a payload references. The portal
// scatters them across four structures.
func (p *Parser) kmlURLs(data []byte) []string {
	var urls []string
	seen := make(map[string]struct{})

	add := func(doc gjson.Result) {
		if !strings.HasSuffix(doc.Get("document_name").String(), ".kml") {
			return
		}
		u := p.documentURL(doc)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	gjson.GetBytes(data, "data.proponentApplications.projectDetailDto.commonFormDetails").
		ForEach(func(_, form gjson.Result) bool {
			form.Get("cafKML").ForEach(func(_, item gjson.Result) bool {
				add(item.Get("caf_kml"))
				return true
			})
			return true
		})

	gjson.GetBytes(data, "data.clearence.commonFormDetail.cafKML").
		ForEach(func(_, item gjson.Result) bool {
			add(item.Get("caf_kml"))
			return true
		})

	gjson.GetBytes(data, "data.clearence.forestClearancePatchKmls").
		ForEach(func(_, item gjson.Result) bool {
			add(item.Get("patch_kml"))
			return true
		})

	gjson.GetBytes(data, "data.clearence.forestClearanceProposedDiversions").
		ForEach(func(_, item gjson.Result) bool {
			add(item.Get("kml"))
			return true
		})

	return urls
}

// Header returns the CSV column order.
func (p *Parser) Header() []string {
	header := make([]string, 0, len(detailFields)+len(xmlOnlyColumns)+len(derivedColumns))
	for _, f := range detailFields {
		header = append(header, f.Name)
	}
	header = append(header, xmlOnlyColumns...)
	header = append(header, derivedColumns...)
	return header
}

// WriteCSV writes the rows with the full header.
func (p *Parser) WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	header := p.Header()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("parse: write header: %w", err)
	}
	line := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			line[i] = row.Values[col]
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("parse: write row %s: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the rows to path, creating parent directories.
func (p *Parser) WriteCSVFile(path string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("parse: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("parse: create %s: %w", path, err)
	}
	if err := p.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// KMLDescriptors turns the harvested KML URLs into descriptors for the fetch
// engine. Attachment keys nest under their project ID so a project's
// geometries stay together on disk.
func KMLDescriptors(rows []Row) []record.Descriptor {
	var descs []record.Descriptor
	for _, row := range rows {
		for _, u := range row.KMLURLs {
			descs = append(descs, record.Descriptor{
				ID:       row.ID + "/" + KMLKey(u),
				Category: record.CategoryGeometry,
				URL:      u,
			})
		}
	}
	return descs
}

// sanitize keeps multi-line portal text on one CSV line.
func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", ";"))
}

// KMLKey derives a stable filename stem for one KML URL from its refId and
// uuid query parameters, falling back to a content hash of the URL.
func KMLKey(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		ref, id := q.Get("refId"), q.Get("uuid")
		if ref != "" && len(id) >= 8 {
			return ref + "_" + id[:8]
		}
	}
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("kml_%x", sum[:4])
}
