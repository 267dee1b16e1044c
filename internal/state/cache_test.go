package state

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamc/sensorwatch/internal/sensors"
)

func makeRecords(n int) []sensors.Record {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]sensors.Record, n)
	for i := range out {
		out[i] = sensors.Record{
			SensorName: fmt.Sprintf("S-%d", i),
			Time:       base.Add(-time.Duration(i) * time.Minute),
			Metrics:    map[string]float64{"co2_ppm": float64(400 + i)},
		}
	}
	return out
}

func TestCache_DisplayIsPrefixOfFull(t *testing.T) {
	for _, n := range []int{0, 1, 499, 500, 501, 1000} {
		for _, limit := range RecordLimits {
			t.Run(fmt.Sprintf("n=%d/limit=%d", n, limit), func(t *testing.T) {
				c := NewCache(limit)
				c.Replace(makeRecords(n), nil)

				snap := c.Snapshot()
				require.Len(t, snap.Full, n)
				require.Len(t, snap.Display, min(limit, n))
				for i := range snap.Display {
					assert.Equal(t, snap.Full[i].SensorName, snap.Display[i].SensorName)
				}
			})
		}
	}
}

func TestCache_SetLimitReslicesWithoutNewData(t *testing.T) {
	c := NewCache(500)
	c.Replace(makeRecords(1000), sensors.StatsSummary{"co2_ppm": {Avg: 1, Count: 5000}})

	require.Len(t, c.Snapshot().Display, 500)

	c.SetLimit(2000)
	snap := c.Snapshot()
	assert.Len(t, snap.Display, 1000, "display is capped by the full set")
	assert.Equal(t, 2000, snap.Limit)
	assert.Equal(t, 5000, snap.Stats["co2_ppm"].Count, "stats are never derived from records")

	c.SetLimit(0)
	assert.Equal(t, 2000, c.Snapshot().Limit, "non-positive limit ignored")

	c.SetLimit(1)
	snap = c.Snapshot()
	require.Len(t, snap.Display, 1)
	assert.Equal(t, "S-0", snap.Display[0].SensorName)
}

func TestCache_ReplaceKeepsLimitAndReset(t *testing.T) {
	c := NewCache(2)
	c.Replace(makeRecords(5), nil)
	c.Replace(makeRecords(1), nil)
	snap := c.Snapshot()
	assert.Len(t, snap.Full, 1)
	assert.Len(t, snap.Display, 1)

	c.Reset()
	snap = c.Snapshot()
	assert.Empty(t, snap.Full)
	assert.Empty(t, snap.Display)
	assert.Nil(t, snap.Stats)
	assert.Equal(t, 2, snap.Limit)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SnapshotIsIndependent(t *testing.T) {
	c := NewCache(10)
	input := makeRecords(3)
	c.Replace(input, sensors.StatsSummary{"a": {Count: 1}})

	input[0].SensorName = "mutated"
	snap := c.Snapshot()
	assert.Equal(t, "S-0", snap.Full[0].SensorName, "Replace must copy its input")

	snap.Full[1].SensorName = "mutated"
	snap.Stats["a"] = sensors.MetricStats{Count: 99}
	again := c.Snapshot()
	assert.Equal(t, "S-1", again.Full[1].SensorName)
	assert.Equal(t, 1, again.Stats["a"].Count)
}

func TestCache_ConcurrentReadersSeeConsistentPairs(t *testing.T) {
	c := NewCache(500)
	c.Replace(makeRecords(1000), nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		limits := []int{10, 500, 2000}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				c.SetLimit(limits[i%len(limits)])
			} else {
				c.Replace(makeRecords(i%1200), nil)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := c.Snapshot()
		if len(snap.Display) != min(snap.Limit, len(snap.Full)) {
			close(stop)
			wg.Wait()
			t.Fatalf("torn snapshot: display %d, limit %d, full %d", len(snap.Display), snap.Limit, len(snap.Full))
		}
	}
	close(stop)
	wg.Wait()
}
