package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamc/sensorwatch/internal/sensors"
)

func TestDefaultFilter(t *testing.T) {
	f := DefaultFilter()
	assert.Equal(t, sensors.Air, f.Sensor)
	assert.Equal(t, 30, f.DaysBack)
	assert.Equal(t, 500, f.RecordLimit)
	assert.Nil(t, f.DateRange)
	assert.Equal(t, "air last 30d", f.Describe())
}

func TestFilter_SettersReturnCopies(t *testing.T) {
	base := DefaultFilter()

	sound, err := base.WithSensor(sensors.Sound)
	require.NoError(t, err)
	assert.Equal(t, sensors.Sound, sound.Sensor)
	assert.Equal(t, sensors.Air, base.Sensor, "receiver must not change")

	rng := sensors.DateRange{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	ranged, err := sound.WithDateRange(rng)
	require.NoError(t, err)
	require.NotNil(t, ranged.DateRange)
	assert.Nil(t, sound.DateRange)
	assert.Equal(t, "sound 2025-01-01..2025-01-31", ranged.Describe())

	q := ranged.Query()
	require.NotNil(t, q.DateRange)
	q.DateRange.From = time.Time{}
	assert.False(t, ranged.DateRange.From.IsZero(), "Query must copy the range")

	back, err := ranged.WithDaysBack(7)
	require.NoError(t, err)
	assert.Nil(t, back.DateRange, "days back clears the date range")
	assert.Equal(t, 7, back.DaysBack)

	assert.Nil(t, ranged.WithoutDateRange().DateRange)
	assert.NotNil(t, ranged.DateRange)
}

func TestFilter_Validation(t *testing.T) {
	f := DefaultFilter()
	var verr *sensors.ValidationError

	_, err := f.WithSensor("water")
	assert.True(t, errors.As(err, &verr))

	for _, n := range []int{0, -1, 366} {
		_, err = f.WithDaysBack(n)
		assert.True(t, errors.As(err, &verr), "days back %d", n)
	}

	_, err = f.WithRecordLimit(0)
	assert.True(t, errors.As(err, &verr))

	_, err = f.WithDateRange(sensors.DateRange{
		From: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.True(t, errors.As(err, &verr))
}

func TestFilter_SameSelection(t *testing.T) {
	base := DefaultFilter()
	limited, _ := base.WithRecordLimit(2000)
	assert.True(t, base.SameSelection(limited), "record limit does not change the selection")

	other, _ := base.WithSensor(sensors.Sound)
	assert.False(t, base.SameSelection(other))

	days, _ := base.WithDaysBack(7)
	assert.False(t, base.SameSelection(days))

	rng := sensors.DateRange{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	a, _ := base.WithDateRange(rng)
	b, _ := base.WithDateRange(rng)
	assert.True(t, a.SameSelection(b))
	assert.False(t, a.SameSelection(base))
}

func TestNextRecordLimit(t *testing.T) {
	assert.Equal(t, 1000, NextRecordLimit(500))
	assert.Equal(t, 500, NextRecordLimit(10000))
	assert.Equal(t, 500, NextRecordLimit(42))
}
