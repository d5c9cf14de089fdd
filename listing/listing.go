// Package listing pulls the portal's paginated proposal search API and
// emits record descriptors for the fetch engine.
//
// The search response shape is configuration, not code: a gjson path locates
// the result array and per-item paths map out the ID and last-update fields,
// so endpoint revisions don't require a rebuild.
package listing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/veldtlabs/ecocat/record"
)

// Config configures the search client.
type Config struct {
	// URL is the search endpoint template. Placeholders {category}, {page}
	// and {size} are expanded per request.
	URL string
	// Method is the HTTP method. Default: GET.
	Method string
	// Headers are sent with every request; values support ${ENV_VAR}
	// expansion.
	Headers map[string]string
	// ItemsPath is the gjson path to the result array. Default: "data".
	ItemsPath string
	// IDField and UpdatedField are gjson paths within one item.
	// Defaults: "id", "updated_on".
	IDField      string
	UpdatedField string
	// PageSize is the requested page size. Default: 100.
	PageSize int
	// MaxPages caps pagination as a runaway guard. 0 means no cap.
	MaxPages int
	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration
	// MaxBytes caps the response body size. Default: 10MB.
	MaxBytes int64
	// UserAgent sent with requests.
	UserAgent string
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Method == "" {
		c.Method = http.MethodGet
	}
	if c.ItemsPath == "" {
		c.ItemsPath = "data"
	}
	if c.IDField == "" {
		c.IDField = "id"
	}
	if c.UpdatedField == "" {
		c.UpdatedField = "updated_on"
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "ecocat/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client pages through the search API.
type Client struct {
	client *http.Client
	config Config
}

// New creates a Client.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

// Descriptors fetches every page for one category and returns the
// de-duplicated descriptor list. Pagination stops at the first short or
// empty page. An empty first page is an error: the engine must be able to
// tell "no input" from "listing endpoint broken".
func (c *Client) Descriptors(ctx context.Context, cat record.Category) ([]record.Descriptor, error) {
	var out []record.Descriptor
	seen := make(map[string]struct{})

	for page := 0; c.config.MaxPages == 0 || page < c.config.MaxPages; page++ {
		items, err := c.page(ctx, cat, page)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			if page == 0 {
				return nil, fmt.Errorf("listing: empty first page for category %s", cat)
			}
			break
		}

		for _, item := range items {
			id := item.Get(c.config.IDField).String()
			if id == "" {
				c.config.Logger.Debug("listing: item without id, skipping", "category", cat)
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, record.Descriptor{
				ID:              id,
				Category:        cat,
				RemoteUpdatedAt: item.Get(c.config.UpdatedField).String(),
			})
		}

		if len(items) < c.config.PageSize {
			break
		}
	}

	c.config.Logger.Info("listing complete", "category", cat, "descriptors", len(out))
	return out, nil
}

func (c *Client) page(ctx context.Context, cat record.Category, page int) ([]gjson.Result, error) {
	url := expand(c.config.URL, map[string]string{
		"category": string(cat),
		"page":     strconv.Itoa(page),
		"size":     strconv.Itoa(c.config.PageSize),
	})

	req, err := http.NewRequestWithContext(ctx, c.config.Method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("listing: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, os.Expand(v, os.Getenv))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("listing: http %d on page %d", resp.StatusCode, page)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("listing: read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("listing: malformed JSON on page %d", page)
	}

	items := gjson.GetBytes(body, c.config.ItemsPath)
	if !items.Exists() {
		return nil, fmt.Errorf("listing: items path %q not found on page %d", c.config.ItemsPath, page)
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("listing: items path %q is not an array on page %d", c.config.ItemsPath, page)
	}
	return items.Array(), nil
}

// expand replaces {name} placeholders in the URL template.
func expand(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
