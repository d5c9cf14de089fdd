// Package fetcher performs one record retrieval: an HTTP request against the
// portal's detail endpoint, structural validation, and an atomic commit into
// the record store.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/store"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindNetwork covers connection errors, timeouts and non-2xx responses.
	KindNetwork Kind = iota + 1
	// KindInvalid covers 200 responses whose body fails structural
	// validation. Never retried: the portal re-serves the same malformed
	// body, so retrying only burns rate budget.
	KindInvalid
	// KindStore covers I/O failures committing an otherwise good payload.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindInvalid:
		return "invalid_response"
	case KindStore:
		return "store"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified fetch failure for one descriptor.
type Error struct {
	Kind       Kind
	Descriptor record.Descriptor
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Descriptor.Key(), e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Committer is the slice of the record store the fetcher needs.
type Committer interface {
	Commit(cat record.Category, id string, payload []byte) error
}

// Config configures the fetcher.
type Config struct {
	// URL builds the request URL for a descriptor. Required unless every
	// descriptor carries its own URL.
	URL func(record.Descriptor) string
	// Method is the HTTP method. The detail endpoint wants POST; KML
	// downloads use GET. Default: POST.
	Method string
	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration
	// MaxBytes caps the response body size. Default: 10MB.
	MaxBytes int64
	// UserAgent sent with requests.
	UserAgent string
	// Retries is how many extra attempts are made after a transport error.
	// Non-2xx responses and invalid bodies are not retried. Default: 2.
	Retries int
	// RetryBackoff is the pause before each retry. Default: 500ms.
	RetryBackoff time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Method == "" {
		c.Method = http.MethodPost
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024 // 10MB
	}
	if c.UserAgent == "" {
		c.UserAgent = "ecocat/1.0"
	}
	if c.Retries < 0 {
		c.Retries = 0
	} else if c.Retries == 0 {
		c.Retries = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher retrieves record payloads and writes them through the store.
// Safe for concurrent use.
type Fetcher struct {
	client *http.Client
	store  Committer
	config Config
}

// New creates a Fetcher committing into st.
func New(st Committer, cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		store:  st,
		config: cfg,
	}
}

// Fetch issues one logical retrieval for the descriptor and commits the
// validated payload. Transport errors are retried up to Retries times; a
// committed payload is the only success.
func (f *Fetcher) Fetch(ctx context.Context, desc record.Descriptor) error {
	url := desc.URL
	if url == "" {
		if f.config.URL == nil {
			return &Error{Kind: KindNetwork, Descriptor: desc, Err: fmt.Errorf("no URL for descriptor")}
		}
		url = f.config.URL(desc)
	}

	var lastErr error
	for attempt := 0; attempt <= f.config.Retries; attempt++ {
		if attempt > 0 {
			f.config.Logger.Debug("fetcher: retrying", "key", desc.Key(), "attempt", attempt)
			select {
			case <-time.After(f.config.RetryBackoff):
			case <-ctx.Done():
				return &Error{Kind: KindNetwork, Descriptor: desc, Err: ctx.Err()}
			}
		}

		body, retryable, err := f.do(ctx, url)
		if err != nil {
			lastErr = err
			if retryable && ctx.Err() == nil {
				continue
			}
			return &Error{Kind: KindNetwork, Descriptor: desc, Err: err}
		}

		if err := f.store.Commit(desc.Category, desc.ID, body); err != nil {
			if errors.Is(err, store.ErrInvalidPayload) {
				return &Error{Kind: KindInvalid, Descriptor: desc, Err: err}
			}
			return &Error{Kind: KindStore, Descriptor: desc, Err: err}
		}
		return nil
	}
	return &Error{Kind: KindNetwork, Descriptor: desc, Err: lastErr}
}

// do performs a single HTTP round trip. retryable is true only for transport
// errors, where a fresh connection may succeed.
func (f *Fetcher) do(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, f.config.Method, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("http %s: %w", f.config.Method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}
