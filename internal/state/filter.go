package state

import (
	"fmt"

	"github.com/gamc/sensorwatch/internal/sensors"
)

const (
	DefaultSensor      = sensors.Air
	DefaultDaysBack    = 30
	DefaultRecordLimit = 500

	MaxDaysBack = 365
)

// RecordLimits are the display window sizes offered to the operator.
var RecordLimits = []int{500, 1000, 2000, 10000}

// Filter is the active data selection. It is a value: setters return a new
// Filter and never modify the receiver.
type Filter struct {
	Sensor      sensors.Type
	DaysBack    int
	DateRange   *sensors.DateRange
	RecordLimit int
}

// DefaultFilter is the selection used on mount.
func DefaultFilter() Filter {
	return Filter{
		Sensor:      DefaultSensor,
		DaysBack:    DefaultDaysBack,
		RecordLimit: DefaultRecordLimit,
	}
}

// WithSensor returns f with a different sensor type.
func (f Filter) WithSensor(t sensors.Type) (Filter, error) {
	if !t.Valid() {
		return f, &sensors.ValidationError{Field: "sensor type", Reason: fmt.Sprintf("unknown type %q", t)}
	}
	f.Sensor = t
	return f, nil
}

// WithDaysBack returns f selecting the last n days. It clears any date range.
func (f Filter) WithDaysBack(n int) (Filter, error) {
	if n < 1 || n > MaxDaysBack {
		return f, &sensors.ValidationError{Field: "days back", Reason: fmt.Sprintf("must be between 1 and %d", MaxDaysBack)}
	}
	f.DaysBack = n
	f.DateRange = nil
	return f, nil
}

// WithDateRange returns f bounded by r, which supersedes DaysBack.
func (f Filter) WithDateRange(r sensors.DateRange) (Filter, error) {
	if err := r.Validate(); err != nil {
		return f, err
	}
	rng := r
	f.DateRange = &rng
	return f, nil
}

// WithoutDateRange returns f falling back to DaysBack.
func (f Filter) WithoutDateRange() Filter {
	f.DateRange = nil
	return f
}

// WithRecordLimit returns f with a different display window size.
func (f Filter) WithRecordLimit(n int) (Filter, error) {
	if n < 1 {
		return f, &sensors.ValidationError{Field: "record limit", Reason: "must be positive"}
	}
	f.RecordLimit = n
	return f, nil
}

// Query converts f into the gateway's query.
func (f Filter) Query() sensors.WindowQuery {
	q := sensors.WindowQuery{DaysBack: f.DaysBack, RecordLimit: f.RecordLimit}
	if f.DateRange != nil {
		rng := *f.DateRange
		q.DateRange = &rng
	}
	return q
}

// SameSelection reports whether f and other select the same records from the
// backend. RecordLimit only matters without a date range, where it is sent
// to the server.
func (f Filter) SameSelection(other Filter) bool {
	if f.Sensor != other.Sensor {
		return false
	}
	if (f.DateRange == nil) != (other.DateRange == nil) {
		return false
	}
	if f.DateRange != nil {
		return f.DateRange.From.Equal(other.DateRange.From) && f.DateRange.To.Equal(other.DateRange.To)
	}
	return f.DaysBack == other.DaysBack
}

// Describe renders the selection for status lines and logs.
func (f Filter) Describe() string {
	if f.DateRange != nil {
		return fmt.Sprintf("%s %s", f.Sensor, f.DateRange)
	}
	return fmt.Sprintf("%s last %dd", f.Sensor, f.DaysBack)
}

// NextRecordLimit returns the record limit after current in RecordLimits.
func NextRecordLimit(current int) int {
	for i, n := range RecordLimits {
		if n == current {
			return RecordLimits[(i+1)%len(RecordLimits)]
		}
	}
	return RecordLimits[0]
}
