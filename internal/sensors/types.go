package sensors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// dateLayout is the calendar-date format the backend expects for date_from/date_to.
const dateLayout = "2006-01-02"

// Type identifies a sensor family served by the backend.
type Type string

const (
	Air         Type = "air"
	Sound       Type = "sound"
	Underground Type = "underground"
)

// Types lists the sensor families in display order.
func Types() []Type {
	return []Type{Air, Sound, Underground}
}

// ParseType maps user input onto a known sensor type.
func ParseType(value string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(value))) {
	case Air:
		return Air, nil
	case Sound:
		return Sound, nil
	case Underground:
		return Underground, nil
	}
	return "", fmt.Errorf("unknown sensor type %q", value)
}

// Valid reports whether t is one of the known sensor families.
func (t Type) Valid() bool {
	_, err := ParseType(string(t))
	return err == nil
}

// Next returns the sensor type following t, wrapping around.
func (t Type) Next() Type {
	all := Types()
	for i, candidate := range all {
		if candidate == t {
			return all[(i+1)%len(all)]
		}
	}
	return Air
}

// DateRange bounds a query by calendar dates, both ends inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Validate checks that both ends are set and ordered.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return &ValidationError{Field: "date range", Reason: "both from and to are required"}
	}
	if r.From.After(r.To) {
		return &ValidationError{
			Field:  "date range",
			Reason: fmt.Sprintf("start %s is after end %s", r.From.Format(dateLayout), r.To.Format(dateLayout)),
		}
	}
	return nil
}

// String renders the range as "from..to".
func (r DateRange) String() string {
	return r.From.Format(dateLayout) + ".." + r.To.Format(dateLayout)
}

// ParseDateRange parses "YYYY-MM-DD..YYYY-MM-DD" (a space or comma also separates).
func ParseDateRange(value string) (DateRange, error) {
	trimmed := strings.TrimSpace(value)
	var parts []string
	for _, sep := range []string{"..", ",", " "} {
		if strings.Contains(trimmed, sep) {
			parts = strings.SplitN(trimmed, sep, 2)
			break
		}
	}
	if len(parts) != 2 {
		return DateRange{}, fmt.Errorf("date range %q: want FROM..TO", value)
	}
	from, err := time.Parse(dateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return DateRange{}, fmt.Errorf("parse from date: %w", err)
	}
	to, err := time.Parse(dateLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return DateRange{}, fmt.Errorf("parse to date: %w", err)
	}
	return DateRange{From: from, To: to}, nil
}

// WindowQuery selects the records a full fetch should return.
type WindowQuery struct {
	DaysBack    int
	DateRange   *DateRange
	RecordLimit int
}

// Record is one timestamped measurement set reported by a sensor.
type Record struct {
	SensorName string
	Time       time.Time
	Metrics    map[string]float64
}

var (
	timeKeys = []string{"time", "timestamp"}
	nameKeys = []string{"sensor_name", "device_name", "sensor_nombre"}
)

// UnmarshalJSON decodes the backend's flat document shape: identity fields
// plus one numeric field per metric.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Record{Metrics: make(map[string]float64)}
	for _, key := range timeKeys {
		if value, ok := raw[key]; ok {
			var text string
			if err := json.Unmarshal(value, &text); err == nil {
				out.Time = parseTime(text)
			}
			if !out.Time.IsZero() {
				break
			}
		}
	}
	for _, key := range nameKeys {
		if value, ok := raw[key]; ok {
			var name string
			if err := json.Unmarshal(value, &name); err == nil && strings.TrimSpace(name) != "" {
				out.SensorName = strings.TrimSpace(name)
				break
			}
		}
	}
	for key, value := range raw {
		if strings.HasPrefix(key, "_") || isIdentityKey(key) {
			continue
		}
		var number float64
		if err := json.Unmarshal(value, &number); err == nil {
			out.Metrics[key] = number
		}
	}
	*r = out
	return nil
}

// MetricNames returns the record's metric keys sorted.
func (r Record) MetricNames() []string {
	names := make([]string, 0, len(r.Metrics))
	for name := range r.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isIdentityKey(key string) bool {
	for _, k := range timeKeys {
		if k == key {
			return true
		}
	}
	for _, k := range nameKeys {
		if k == key {
			return true
		}
	}
	return false
}

// MetricStats is the backend aggregate for one metric.
type MetricStats struct {
	Avg   float64
	Min   float64
	Max   float64
	Count int
}

// StatsSummary maps metric names to backend-computed aggregates. It may cover
// more records than a capped data fetch returns.
type StatsSummary map[string]MetricStats

// Names returns the metric names sorted.
func (s StatsSummary) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Window is the result of a full fetch.
type Window struct {
	Records []Record
	Stats   StatsSummary
}

// NewDataCheck reports whether records arrived after a given instant.
type NewDataCheck struct {
	HasNew   bool
	NewCount int
	Latest   time.Time
}

// DateBounds is the span of stored data for one sensor type.
type DateBounds struct {
	Min time.Time
	Max time.Time
}

// Empty reports whether the backend has no data for the type.
func (b DateBounds) Empty() bool {
	return b.Min.IsZero() || b.Max.IsZero()
}

// Preview is a batch of generated records not yet persisted. Raw keeps the
// documents exactly as the backend produced them so they can be saved back.
type Preview struct {
	Raw     []json.RawMessage
	Records []Record
}

// PreviewRequest configures generate-preview.
type PreviewRequest struct {
	Count     int
	DaysBack  int
	DateRange *DateRange
}

// transport payloads

type dataResponse struct {
	Data *[]Record `json:"data"`
}

type statsResponse struct {
	Metrics map[string]json.RawMessage `json:"metrics"`
}

type statEntry struct {
	Count    *int     `json:"count"`
	Average  *float64 `json:"average"`
	MinValue *float64 `json:"min_value"`
	MaxValue *float64 `json:"max_value"`
}

type checkResponse struct {
	HasNewData      *bool  `json:"has_new_data"`
	NewCount        int    `json:"new_count"`
	LatestTimestamp string `json:"latest_timestamp"`
}

type availableDatesResponse struct {
	DateRanges map[string]struct {
		MinDate string `json:"min_date"`
		MaxDate string `json:"max_date"`
	} `json:"date_ranges"`
}

type previewResponse struct {
	Data *[]json.RawMessage `json:"data"`
}

type mutationResponse struct {
	RecordsDeleted  int `json:"records_deleted"`
	RecordsSaved    int `json:"records_saved"`
	RecordsInserted int `json:"records_inserted"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// decodeStats keeps only object entries that look like metric aggregates; the
// backend mixes metadata keys (count, min_date, _metadata) into the same map.
func decodeStats(raw map[string]json.RawMessage) StatsSummary {
	out := make(StatsSummary, len(raw))
	for name, value := range raw {
		if strings.HasPrefix(name, "_") {
			continue
		}
		var entry statEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			continue
		}
		if entry.Average == nil && entry.MinValue == nil && entry.MaxValue == nil {
			continue
		}
		stats := MetricStats{}
		if entry.Average != nil {
			stats.Avg = *entry.Average
		}
		if entry.MinValue != nil {
			stats.Min = *entry.MinValue
		}
		if entry.MaxValue != nil {
			stats.Max = *entry.MaxValue
		}
		if entry.Count != nil {
			stats.Count = *entry.Count
		}
		out[name] = stats
	}
	return out
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	// Naive timestamps carry no offset; keep them as received rather than
	// guessing a zone.
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", dateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
