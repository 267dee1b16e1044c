package sensors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Gateway defines the backend operations the sync controller consumes.
// This interface is implemented by *Client and can be faked in tests.
type Gateway interface {
	FetchWindow(ctx context.Context, sensor Type, query WindowQuery) (Window, error)
	CheckNewData(ctx context.Context, sensor Type, since time.Time) (NewDataCheck, error)
	AvailableDates(ctx context.Context) (map[Type]DateBounds, error)
	Clear(ctx context.Context, sensor Type) (int, error)
	UploadCSV(ctx context.Context, sensor Type, filename string, file io.Reader) (int, error)
	GeneratePreview(ctx context.Context, sensor Type, req PreviewRequest) (Preview, error)
	SavePreview(ctx context.Context, sensor Type, docs []json.RawMessage) (int, error)
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

// Session supplies the bearer token and is told when the backend rejects it.
type Session interface {
	Token() string
	Invalidate()
}

// Client talks to the sensor backend's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	session   Session
}

const (
	defaultBaseURL   = "http://localhost:8000/api"
	defaultUserAgent = "sensorwatch/0.1"
	requestTimeout   = 10 * time.Second

	// RangeFetchLimit is the server's maximum page size. Date range fetches
	// request everything in range and truncate locally.
	RangeFetchLimit = 10000
)

// Option customizes a Client.
type Option func(*Client)

// WithSession attaches bearer-token credentials to every request.
func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchWindow performs a full fetch: records and stats for the query. A date
// range asks the server for everything in range; otherwise the record limit
// is passed straight through.
func (c *Client) FetchWindow(ctx context.Context, sensor Type, query WindowQuery) (Window, error) {
	if c == nil {
		return Window{}, fmt.Errorf("client is nil")
	}
	if query.DateRange != nil {
		if err := query.DateRange.Validate(); err != nil {
			return Window{}, err
		}
	}

	var win Window
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := c.FetchData(gctx, sensor, query)
		win.Records = records
		return err
	})
	g.Go(func() error {
		stats, err := c.FetchStats(gctx, sensor, query)
		win.Stats = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return Window{}, err
	}
	return win, nil
}

// FetchData retrieves raw records for the query.
func (c *Client) FetchData(ctx context.Context, sensor Type, query WindowQuery) ([]Record, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := filterValues(query)
	if query.DateRange != nil {
		values.Set("limit", strconv.Itoa(RangeFetchLimit))
	} else if query.RecordLimit > 0 {
		values.Set("limit", strconv.Itoa(query.RecordLimit))
	}
	path := sensorPath(sensor, "data")
	var payload dataResponse
	if err := c.doJSON(ctx, http.MethodGet, path, values, nil, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, &MalformedError{Path: path, Reason: "missing data field"}
	}
	return *payload.Data, nil
}

// FetchStats retrieves backend-computed aggregates for the query.
func (c *Client) FetchStats(ctx context.Context, sensor Type, query WindowQuery) (StatsSummary, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	path := sensorPath(sensor, "stats")
	var payload statsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, filterValues(query), nil, &payload); err != nil {
		return nil, err
	}
	if payload.Metrics == nil {
		return nil, &MalformedError{Path: path, Reason: "missing metrics field"}
	}
	return decodeStats(payload.Metrics), nil
}

// CheckNewData asks whether records arrived after since. It never transfers
// records.
func (c *Client) CheckNewData(ctx context.Context, sensor Type, since time.Time) (NewDataCheck, error) {
	if c == nil {
		return NewDataCheck{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if !since.IsZero() {
		values.Set("last_check", since.Format(time.RFC3339Nano))
	}
	path := sensorPath(sensor, "check-new-data")
	var payload checkResponse
	if err := c.doJSON(ctx, http.MethodGet, path, values, nil, &payload); err != nil {
		return NewDataCheck{}, err
	}
	if payload.HasNewData == nil {
		return NewDataCheck{}, &MalformedError{Path: path, Reason: "missing has_new_data field"}
	}
	return NewDataCheck{
		HasNew:   *payload.HasNewData,
		NewCount: payload.NewCount,
		Latest:   parseTime(payload.LatestTimestamp),
	}, nil
}

// AvailableDates returns the stored data span per sensor type.
func (c *Client) AvailableDates(ctx context.Context) (map[Type]DateBounds, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	const path = "/sensors/available-dates"
	var payload availableDatesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &payload); err != nil {
		return nil, err
	}
	if payload.DateRanges == nil {
		return nil, &MalformedError{Path: path, Reason: "missing date_ranges field"}
	}
	out := make(map[Type]DateBounds, len(payload.DateRanges))
	for key, span := range payload.DateRanges {
		sensor, err := ParseType(key)
		if err != nil {
			continue
		}
		out[sensor] = DateBounds{Min: parseTime(span.MinDate), Max: parseTime(span.MaxDate)}
	}
	return out, nil
}

// Clear deletes every stored record of the sensor type.
func (c *Client) Clear(ctx context.Context, sensor Type) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	var payload mutationResponse
	if err := c.doJSON(ctx, http.MethodDelete, sensorPath(sensor, "clear"), nil, nil, &payload); err != nil {
		return 0, err
	}
	return payload.RecordsDeleted, nil
}

// UploadCSV posts a CSV file as multipart form data.
func (c *Client) UploadCSV(ctx context.Context, sensor Type, filename string, file io.Reader) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return 0, &ValidationError{Field: "file", Reason: "only CSV files are supported"}
	}
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return 0, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("close form: %w", err)
	}
	var payload mutationResponse
	if err := c.do(ctx, http.MethodPost, sensorPath(sensor, "upload-csv"), nil, &body, form.FormDataContentType(), &payload); err != nil {
		return 0, err
	}
	return payload.RecordsInserted, nil
}

// GeneratePreview asks the backend for synthetic records without saving them.
func (c *Client) GeneratePreview(ctx context.Context, sensor Type, req PreviewRequest) (Preview, error) {
	if c == nil {
		return Preview{}, fmt.Errorf("client is nil")
	}
	body := map[string]any{"count": req.Count, "days_back": req.DaysBack}
	if req.Count <= 0 {
		body["count"] = 50
	}
	if req.DaysBack <= 0 {
		body["days_back"] = 30
	}
	if req.DateRange != nil {
		if err := req.DateRange.Validate(); err != nil {
			return Preview{}, err
		}
		body["date_from"] = req.DateRange.From.Format(dateLayout)
		body["date_to"] = req.DateRange.To.Format(dateLayout)
	}
	path := sensorPath(sensor, "generate-preview")
	var payload previewResponse
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, &payload); err != nil {
		return Preview{}, err
	}
	if payload.Data == nil {
		return Preview{}, &MalformedError{Path: path, Reason: "missing data field"}
	}
	preview := Preview{Raw: *payload.Data, Records: make([]Record, 0, len(*payload.Data))}
	for _, doc := range preview.Raw {
		var rec Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			return Preview{}, &MalformedError{Path: path, Reason: "bad preview record", Err: err}
		}
		preview.Records = append(preview.Records, rec)
	}
	return preview, nil
}

// SavePreview persists previously generated documents.
func (c *Client) SavePreview(ctx context.Context, sensor Type, docs []json.RawMessage) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	if len(docs) == 0 {
		return 0, &ValidationError{Field: "preview", Reason: "no data provided to save"}
	}
	var payload mutationResponse
	body := map[string]any{"data": docs}
	if err := c.doJSON(ctx, http.MethodPost, sensorPath(sensor, "save-generated"), nil, body, &payload); err != nil {
		return 0, err
	}
	return payload.RecordsSaved, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, values url.Values, body any, dest any) error {
	if body == nil {
		return c.do(ctx, method, path, values, nil, "", dest)
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, method, path, values, bytes.NewReader(encoded), "application/json", dest)
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, body io.Reader, contentType string, dest any) error {
	reqURL := c.baseURL.JoinPath(path)
	if len(values) > 0 {
		reqURL.RawQuery = values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized && c.session != nil {
			c.session.Invalidate()
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &StatusError{Path: path, Status: resp.StatusCode, Detail: parseDetail(raw)}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if ctx.Err() != nil {
			return &NetworkError{Path: path, Err: err}
		}
		return &MalformedError{Path: path, Reason: "invalid json", Err: err}
	}
	return nil
}

func filterValues(query WindowQuery) url.Values {
	values := url.Values{}
	if query.DateRange != nil {
		values.Set("date_from", query.DateRange.From.Format(dateLayout))
		values.Set("date_to", query.DateRange.To.Format(dateLayout))
		return values
	}
	if query.DaysBack > 0 {
		values.Set("days_back", strconv.Itoa(query.DaysBack))
	}
	return values
}

func sensorPath(sensor Type, op string) string {
	return "/sensors/" + url.PathEscape(string(sensor)) + "/" + op
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
