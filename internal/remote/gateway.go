// Package remote talks to the remote collection resource that acts as the
// source of truth for synced quotes.
//
// The resource speaks JSON over HTTP:
//
//	GET  <endpoint>?_limit=N  → [{"id": 1, "title": "...", "body": "..."}, ...]
//	POST <endpoint>           ← {"title": "...", "body": "..."}
//
// Remote items map to local records by copying title into Text, deriving
// Category from the first word of body, and using id as RemoteID.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mschirtzinger/quotesync/internal/quote"
)

// ErrUnreachable marks a fetch that could not obtain a usable response.
var ErrUnreachable = errors.New("remote unreachable")

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Config configures a Gateway.
type Config struct {
	// Endpoint is the collection resource URL.
	Endpoint string

	// FetchLimit caps how many items one fetch returns (default: 10).
	FetchLimit int

	// RequestTimeout bounds each HTTP request (default: 10s).
	RequestTimeout time.Duration

	// PushConcurrency bounds parallel pushes in PushAll (default: 4).
	PushConcurrency int

	// UserAgent is sent with every request.
	UserAgent string

	// Client overrides the HTTP client.
	Client *http.Client

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults for the given endpoint.
func DefaultConfig(endpoint string) *Config {
	return &Config{
		Endpoint:        endpoint,
		FetchLimit:      10,
		RequestTimeout:  10 * time.Second,
		PushConcurrency: 4,
		UserAgent:       "quotesync/1.0",
	}
}

// FetchResult is the outcome of a fetch. Reachable distinguishes a remote
// that legitimately returned nothing from one that could not be contacted.
type FetchResult struct {
	Records   []quote.Record
	Reachable bool
	Skipped   int
	Err       error
}

// PushReport summarizes a best-effort batch of pushes.
type PushReport struct {
	Attempted int
	Succeeded int
	Failed    int
	// Err combines every individual failure; nil when all succeeded.
	Err error
}

// Gateway is an HTTP client for the remote collection.
type Gateway struct {
	endpoint    *url.URL
	limit       int
	timeout     time.Duration
	concurrency int
	userAgent   string
	client      *http.Client
	logger      *zap.Logger
}

// New creates a Gateway.
func New(config *Config) (*Gateway, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be http or https, got %q", u.Scheme)
	}

	g := &Gateway{
		endpoint:    u,
		limit:       config.FetchLimit,
		timeout:     config.RequestTimeout,
		concurrency: config.PushConcurrency,
		userAgent:   config.UserAgent,
		client:      config.Client,
		logger:      config.Logger,
	}
	if g.limit <= 0 {
		g.limit = 10
	}
	if g.timeout <= 0 {
		g.timeout = 10 * time.Second
	}
	if g.concurrency <= 0 {
		g.concurrency = 4
	}
	if g.client == nil {
		g.client = &http.Client{}
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g, nil
}

// Endpoint returns the configured resource URL.
func (g *Gateway) Endpoint() string {
	return g.endpoint.String()
}

// remoteItem is the wire shape. Fields are raw so one odd item cannot fail
// the whole response.
type remoteItem struct {
	ID    json.RawMessage `json:"id"`
	Title json.RawMessage `json:"title"`
	Body  json.RawMessage `json:"body"`
}

// Fetch requests a bounded snapshot of the remote collection.
func (g *Gateway) Fetch(ctx context.Context) FetchResult {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	u := *g.endpoint
	q := u.Query()
	q.Set("_limit", strconv.Itoa(g.limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return unreachable(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	g.setUserAgent(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unreachable(fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return unreachable(fmt.Errorf("failed to read response: %w", err))
	}

	// null decodes into a nil slice without error.
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		return unreachable(errors.New("response is not a JSON array"))
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return unreachable(fmt.Errorf("response is not a JSON array: %w", err))
	}

	result := FetchResult{Reachable: true, Records: make([]quote.Record, 0, len(raw))}
	for i, item := range raw {
		if len(result.Records) >= g.limit {
			break
		}
		rec, err := mapItem(item)
		if err != nil {
			g.logger.Debug("skipping remote item", zap.Int("index", i), zap.Error(err))
			result.Skipped++
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result
}

func unreachable(err error) FetchResult {
	return FetchResult{Reachable: false, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
}

// mapItem converts one remote item into a synced record.
func mapItem(data json.RawMessage) (quote.Record, error) {
	var item remoteItem
	if err := json.Unmarshal(data, &item); err != nil {
		return quote.Record{}, fmt.Errorf("item is not an object: %w", err)
	}

	id, err := decodeID(item.ID)
	if err != nil {
		return quote.Record{}, err
	}

	var title string
	if len(item.Title) > 0 {
		if err := json.Unmarshal(item.Title, &title); err != nil {
			return quote.Record{}, fmt.Errorf("title is not a string")
		}
	}
	if strings.TrimSpace(title) == "" {
		return quote.Record{}, fmt.Errorf("item %s has no title", id)
	}

	// A non-string body is tolerated and treated as missing.
	var body string
	if len(item.Body) > 0 {
		_ = json.Unmarshal(item.Body, &body)
	}

	return quote.Record{
		Text:     title,
		Category: CategoryFromBody(body),
		RemoteID: id,
	}, nil
}

// decodeID renders a string or numeric identifier as opaque text.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("item has no id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("item has empty id")
		}
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("id is neither string nor number")
	}
	return n.String(), nil
}

// CategoryFromBody returns the lower-cased first word of body, or
// quote.DefaultCategory when body has no words.
func CategoryFromBody(body string) string {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return quote.DefaultCategory
	}
	return strings.ToLower(fields[0])
}

// Push sends a create request for one local-only record.
func (g *Gateway) Push(ctx context.Context, r quote.Record) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"title": r.Text,
		"body":  r.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	g.setUserAgent(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("push %q: %w", r.Text, err)
	}
	defer resp.Body.Close()
	// The acknowledgement body is not used.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push %q: unexpected status %s", r.Text, resp.Status)
	}
	return nil
}

// PushAll pushes every record independently. A failing push never stops the
// others; failures are only reported.
func (g *Gateway) PushAll(ctx context.Context, records []quote.Record) PushReport {
	report := PushReport{Attempted: len(records)}
	if len(records) == 0 {
		return report
	}

	errs := make([]error, len(records))

	// The group context is not used for the pushes: one failure must not
	// cancel the rest.
	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, r := range records {
		eg.Go(func() error {
			errs[i] = g.Push(ctx, r)
			return nil
		})
	}
	_ = eg.Wait()

	for _, err := range errs {
		if err != nil {
			report.Failed++
			report.Err = multierr.Append(report.Err, err)
			continue
		}
		report.Succeeded++
	}
	return report
}

func (g *Gateway) setUserAgent(req *http.Request) {
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
}
