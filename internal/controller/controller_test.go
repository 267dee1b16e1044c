package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamc/sensorwatch/internal/metrics"
	"github.com/gamc/sensorwatch/internal/sensors"
	"github.com/gamc/sensorwatch/internal/state"
)

const (
	pollInterval = 20 * time.Millisecond
	waitFor      = 2 * time.Second
	tickEvery    = 5 * time.Millisecond
)

type fetchCall struct {
	sensor sensors.Type
	query  sensors.WindowQuery
}

type fakeGateway struct {
	mu             sync.Mutex
	fetches        []fetchCall
	checks         int
	checkActive    int
	checkMaxActive int
	cleared        int
	uploaded       string
	saved          []json.RawMessage

	fetchFn func(ctx context.Context, sensor sensors.Type, q sensors.WindowQuery) (sensors.Window, error)
	checkFn func(ctx context.Context, sensor sensors.Type, since time.Time) (sensors.NewDataCheck, error)
}

func (f *fakeGateway) FetchWindow(ctx context.Context, sensor sensors.Type, q sensors.WindowQuery) (sensors.Window, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, fetchCall{sensor: sensor, query: q})
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return sensors.Window{Records: makeRecords(sensor, 10)}, nil
	}
	return fn(ctx, sensor, q)
}

func (f *fakeGateway) CheckNewData(ctx context.Context, sensor sensors.Type, since time.Time) (sensors.NewDataCheck, error) {
	f.mu.Lock()
	f.checks++
	f.checkActive++
	if f.checkActive > f.checkMaxActive {
		f.checkMaxActive = f.checkActive
	}
	fn := f.checkFn
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.checkActive--
		f.mu.Unlock()
	}()
	if fn == nil {
		return sensors.NewDataCheck{}, nil
	}
	return fn(ctx, sensor, since)
}

func (f *fakeGateway) AvailableDates(context.Context) (map[sensors.Type]sensors.DateBounds, error) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return map[sensors.Type]sensors.DateBounds{sensors.Air: {Min: day, Max: day.AddDate(0, 1, 0)}}, nil
}

func (f *fakeGateway) Clear(context.Context, sensors.Type) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return 42, nil
}

func (f *fakeGateway) UploadCSV(_ context.Context, _ sensors.Type, filename string, file io.Reader) (int, error) {
	if _, err := io.ReadAll(file); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = filename
	return 3, nil
}

func (f *fakeGateway) GeneratePreview(_ context.Context, _ sensors.Type, req sensors.PreviewRequest) (sensors.Preview, error) {
	raw := make([]json.RawMessage, req.Count)
	for i := range raw {
		raw[i] = json.RawMessage(`{"co2_ppm":400}`)
	}
	return sensors.Preview{Raw: raw}, nil
}

func (f *fakeGateway) SavePreview(_ context.Context, _ sensors.Type, docs []json.RawMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = docs
	return len(docs), nil
}

func (f *fakeGateway) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func (f *fakeGateway) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

func (f *fakeGateway) lastFetch() fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[len(f.fetches)-1]
}

type offlineFlag bool

func (o offlineFlag) Offline() bool { return bool(o) }

func makeRecords(sensor sensors.Type, n int) []sensors.Record {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]sensors.Record, n)
	for i := range out {
		out[i] = sensors.Record{
			SensorName: string(sensor),
			Time:       base.Add(time.Duration(i) * time.Minute),
			Metrics:    map[string]float64{"value": float64(i)},
		}
	}
	return out
}

func startController(t *testing.T, gw sensors.Gateway, opts ...Option) *Controller {
	t.Helper()
	c := New(gw, opts...)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func waitIdle(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return c.Snapshot().Phase == Idle }, waitFor, tickEvery)
	return c.Snapshot()
}

func TestStart_FetchesAndSlicesDisplay(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(_ context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		return sensors.Window{
			Records: makeRecords(s, 1000),
			Stats:   sensors.StatsSummary{"value": {Avg: 499.5, Min: 0, Max: 999, Count: 4000}},
		}, nil
	}}
	c := startController(t, gw)

	snap := waitIdle(t, c)
	require.Equal(t, 1, gw.fetchCount())
	assert.Len(t, snap.Cache.Full, 1000)
	assert.Len(t, snap.Cache.Display, 500)
	assert.Equal(t, 4000, snap.Cache.Stats["value"].Count, "stats come from the backend, not from records")
	assert.False(t, snap.LastRefresh.IsZero())
	assert.True(t, snap.Notice.Empty())

	call := gw.lastFetch()
	assert.Equal(t, sensors.Air, call.sensor)
	assert.Equal(t, 30, call.query.DaysBack)
	assert.Equal(t, 500, call.query.RecordLimit)
}

func TestSetRecordLimit_ReslicesWithoutNetwork(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(_ context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		return sensors.Window{Records: makeRecords(s, 1000)}, nil
	}}
	c := startController(t, gw)
	waitIdle(t, c)

	require.NoError(t, c.SetRecordLimit(2000))
	snap := c.Snapshot()
	assert.Len(t, snap.Cache.Display, 1000)
	assert.Equal(t, 2000, snap.Filter.RecordLimit)

	require.NoError(t, c.SetRecordLimit(100))
	snap = c.Snapshot()
	require.Len(t, snap.Cache.Display, 100)
	assert.Equal(t, snap.Cache.Full[:100], snap.Cache.Display)

	assert.Equal(t, 1, gw.fetchCount())
	assert.Equal(t, 0, gw.checkCount())
	assert.Equal(t, Idle, snap.Phase)
}

func TestSetRecordLimit_RejectsNonPositive(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw)
	waitIdle(t, c)

	err := c.SetRecordLimit(0)
	var verr *sensors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ClassValidation, c.Snapshot().Notice.Class)
}

func TestApplyDateRange_FetchesOnceAndReplaces(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(_ context.Context, s sensors.Type, q sensors.WindowQuery) (sensors.Window, error) {
		if q.DateRange != nil {
			return sensors.Window{Records: makeRecords(s, 3)}, nil
		}
		return sensors.Window{Records: makeRecords(s, 10)}, nil
	}}
	c := startController(t, gw)
	waitIdle(t, c)

	rng, err := sensors.ParseDateRange("2025-01-01..2025-01-31")
	require.NoError(t, err)
	require.NoError(t, c.ApplyDateRange(rng))

	snap := waitIdle(t, c)
	require.Equal(t, 2, gw.fetchCount())
	require.NotNil(t, gw.lastFetch().query.DateRange)
	assert.Len(t, snap.Cache.Full, 3)
	assert.Equal(t, "air 2025-01-01..2025-01-31", snap.Filter.Describe())

	require.NoError(t, c.ClearDateRange())
	snap = waitIdle(t, c)
	assert.Equal(t, 3, gw.fetchCount())
	assert.Nil(t, snap.Filter.DateRange)
	assert.Len(t, snap.Cache.Full, 10)

	require.NoError(t, c.ClearDateRange())
	assert.Equal(t, 3, gw.fetchCount(), "clearing an absent range does not fetch")
}

func TestApplyDateRange_InvalidRangeSendsNothing(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw)
	waitIdle(t, c)

	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	err := c.ApplyDateRange(sensors.DateRange{From: day(10), To: day(1)})

	var verr *sensors.ValidationError
	require.ErrorAs(t, err, &verr)
	snap := c.Snapshot()
	assert.Equal(t, 1, gw.fetchCount())
	assert.Equal(t, ClassValidation, snap.Notice.Class)
	assert.Nil(t, snap.Filter.DateRange)
	assert.Equal(t, Idle, snap.Phase)
}

func TestSetDaysBack(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw)
	waitIdle(t, c)

	require.NoError(t, c.SetDaysBack(30))
	assert.Equal(t, 1, gw.fetchCount(), "same selection does not fetch")

	require.NoError(t, c.SetDaysBack(7))
	waitIdle(t, c)
	assert.Equal(t, 2, gw.fetchCount())
	assert.Equal(t, 7, gw.lastFetch().query.DaysBack)

	require.Error(t, c.SetDaysBack(400))
	assert.Equal(t, 2, gw.fetchCount())
}

func TestSetSensor_DiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{}
	gw.fetchFn = func(_ context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		if s == sensors.Air {
			// Simulate a response that arrives after the request was cancelled.
			<-release
			return sensors.Window{Records: makeRecords(sensors.Air, 50)}, nil
		}
		return sensors.Window{Records: makeRecords(s, 5)}, nil
	}
	reg := metricsFor(t)
	c := startController(t, gw, WithMetrics(reg))

	require.Eventually(t, func() bool { return gw.fetchCount() == 1 }, waitFor, tickEvery)
	require.NoError(t, c.SetSensor(sensors.Sound))
	snap := waitIdle(t, c)
	require.Len(t, snap.Cache.Full, 5)

	close(release)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(reg.FullFetches.WithLabelValues("air", metrics.ModeForeground, metrics.ResultStale)) == 1
	}, waitFor, tickEvery)

	snap = c.Snapshot()
	assert.Equal(t, sensors.Sound, snap.Filter.Sensor)
	require.Len(t, snap.Cache.Full, 5)
	assert.Equal(t, "sound", snap.Cache.Full[0].SensorName)
}

func TestSetSensor_SameTypeIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw)
	waitIdle(t, c)

	require.NoError(t, c.SetSensor(sensors.Air))
	assert.Equal(t, 1, gw.fetchCount())
	require.Error(t, c.SetSensor(sensors.Type("water")))
}

func TestForegroundFailure_EmptiesDataAndShowsNotice(t *testing.T) {
	var fail sync.Mutex
	failing := false
	gw := &fakeGateway{}
	gw.fetchFn = func(_ context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		fail.Lock()
		defer fail.Unlock()
		if failing {
			return sensors.Window{}, &sensors.StatusError{Path: "/sensors/air/data", Status: 500, Detail: "database unavailable"}
		}
		return sensors.Window{Records: makeRecords(s, 10)}, nil
	}
	c := startController(t, gw)
	waitIdle(t, c)

	fail.Lock()
	failing = true
	fail.Unlock()
	require.NoError(t, c.Refresh())

	require.Eventually(t, func() bool { return c.Snapshot().Phase == Error }, waitFor, tickEvery)
	snap := c.Snapshot()
	assert.Empty(t, snap.Cache.Full)
	assert.Empty(t, snap.Cache.Display)
	assert.Equal(t, Notice{Class: ClassServer, Message: "database unavailable"}, snap.Notice)

	fail.Lock()
	failing = false
	fail.Unlock()
	require.NoError(t, c.Refresh())
	snap = waitIdle(t, c)
	assert.Len(t, snap.Cache.Full, 10)
	assert.True(t, snap.Notice.Empty())
}

func TestNetworkFailure_OfflineSession(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(context.Context, sensors.Type, sensors.WindowQuery) (sensors.Window, error) {
		return sensors.Window{}, &sensors.NetworkError{Path: "/sensors/air/data", Err: errors.New("connection refused")}
	}}
	c := startController(t, gw, WithOffline(offlineFlag(true)))

	require.Eventually(t, func() bool { return c.Snapshot().Phase == Offline }, waitFor, tickEvery)
	snap := c.Snapshot()
	assert.Equal(t, ClassOfflineDegraded, snap.Notice.Class)
	assert.Equal(t, OfflineMessage, snap.Notice.Message)
	assert.Empty(t, snap.Cache.Full)
}

func TestNetworkFailure_OnlineSession(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(context.Context, sensors.Type, sensors.WindowQuery) (sensors.Window, error) {
		return sensors.Window{}, &sensors.NetworkError{Path: "/sensors/air/data", Err: errors.New("connection refused")}
	}}
	c := startController(t, gw, WithOffline(offlineFlag(false)))

	require.Eventually(t, func() bool { return c.Snapshot().Phase == Error }, waitFor, tickEvery)
	assert.Equal(t, ClassNetwork, c.Snapshot().Notice.Class)
}

func TestPoll_NoNewDataOnlyTouchesLastDataCheck(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw, WithAutoRefresh(true, pollInterval))
	first := waitIdle(t, c)

	require.Eventually(t, func() bool { return gw.checkCount() >= 2 }, waitFor, tickEvery)
	require.Eventually(t, func() bool {
		return c.Snapshot().LastDataCheck.After(first.LastDataCheck)
	}, waitFor, tickEvery)

	snap := c.Snapshot()
	assert.Equal(t, 1, gw.fetchCount())
	assert.Equal(t, first.LastRefresh, snap.LastRefresh)
	assert.Equal(t, first.Cache.Full, snap.Cache.Full)
	assert.True(t, snap.Notice.Empty())
}

func TestPoll_SinceIsReadAtTickTime(t *testing.T) {
	var mu sync.Mutex
	var seen []time.Time
	gw := &fakeGateway{checkFn: func(_ context.Context, _ sensors.Type, since time.Time) (sensors.NewDataCheck, error) {
		mu.Lock()
		seen = append(seen, since)
		mu.Unlock()
		return sensors.NewDataCheck{}, nil
	}}
	c := startController(t, gw, WithAutoRefresh(true, pollInterval))
	waitIdle(t, c)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 3
	}, waitFor, tickEvery)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		assert.True(t, seen[i].After(seen[i-1]), "check %d reused a stale last-check time", i)
	}
}

func TestPoll_NewDataTriggersOneSilentRefresh(t *testing.T) {
	var mu sync.Mutex
	reported := false
	gw := &fakeGateway{}
	gw.checkFn = func(context.Context, sensors.Type, time.Time) (sensors.NewDataCheck, error) {
		mu.Lock()
		defer mu.Unlock()
		if reported {
			return sensors.NewDataCheck{}, nil
		}
		reported = true
		return sensors.NewDataCheck{HasNew: true, NewCount: 7}, nil
	}
	gw.fetchFn = func(_ context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		return sensors.Window{Records: makeRecords(s, 10+gw.fetchCount())}, nil
	}
	reg := metricsFor(t)
	c := startController(t, gw, WithAutoRefresh(true, pollInterval), WithMetrics(reg))
	first := waitIdle(t, c)

	require.Eventually(t, func() bool { return gw.fetchCount() == 2 }, waitFor, tickEvery)
	require.Eventually(t, func() bool { return gw.checkCount() >= 3 }, waitFor, tickEvery)

	snap := waitIdle(t, c)
	assert.Equal(t, 2, gw.fetchCount())
	assert.True(t, snap.LastRefresh.After(first.LastRefresh))
	assert.Len(t, snap.Cache.Full, 12)
	assert.True(t, snap.Notice.Empty())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FullFetches.WithLabelValues("air", metrics.ModeSilent, metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DataChecks.WithLabelValues("air", metrics.ResultNew)))
}

func TestPoll_SilentFailureIsNotSurfaced(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	gw := &fakeGateway{}
	gw.checkFn = func(context.Context, sensors.Type, time.Time) (sensors.NewDataCheck, error) {
		return sensors.NewDataCheck{HasNew: true, NewCount: 7}, nil
	}
	gw.fetchFn = func(_ context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls > 1 {
			return sensors.Window{}, &sensors.StatusError{Status: 503, Detail: "busy"}
		}
		return sensors.Window{Records: makeRecords(s, 10)}, nil
	}
	c := startController(t, gw, WithAutoRefresh(true, pollInterval))
	first := waitIdle(t, c)

	require.Eventually(t, func() bool { return gw.fetchCount() >= 2 }, waitFor, tickEvery)
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.Phase == Idle && s.LastRefresh.After(first.LastRefresh)
	}, waitFor, tickEvery)

	snap := c.Snapshot()
	assert.True(t, snap.Notice.Empty())
	assert.Len(t, snap.Cache.Full, 10, "cached data survives a background failure")
}

func TestPoll_CheckFailureIsLoggedOnly(t *testing.T) {
	gw := &fakeGateway{checkFn: func(context.Context, sensors.Type, time.Time) (sensors.NewDataCheck, error) {
		return sensors.NewDataCheck{}, &sensors.NetworkError{Err: errors.New("timeout")}
	}}
	c := startController(t, gw, WithAutoRefresh(true, pollInterval))
	first := waitIdle(t, c)

	require.Eventually(t, func() bool { return gw.checkCount() >= 2 }, waitFor, tickEvery)
	snap := waitIdle(t, c)
	assert.True(t, snap.Notice.Empty())
	assert.Equal(t, first.LastDataCheck, snap.LastDataCheck)
	assert.Equal(t, 1, gw.fetchCount())
}

func TestPoll_NoOverlappingChecks(t *testing.T) {
	gw := &fakeGateway{checkFn: func(ctx context.Context, _ sensors.Type, _ time.Time) (sensors.NewDataCheck, error) {
		select {
		case <-time.After(5 * pollInterval):
		case <-ctx.Done():
			return sensors.NewDataCheck{}, ctx.Err()
		}
		return sensors.NewDataCheck{}, nil
	}}
	c := startController(t, gw, WithAutoRefresh(true, pollInterval))
	waitIdle(t, c)

	require.Eventually(t, func() bool { return gw.checkCount() >= 3 }, waitFor, tickEvery)
	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Equal(t, 1, gw.checkMaxActive)
}

func TestPoll_NoCheckWhileLoading(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{fetchFn: func(ctx context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return sensors.Window{}, ctx.Err()
		}
		return sensors.Window{Records: makeRecords(s, 1)}, nil
	}}
	c := startController(t, gw, WithAutoRefresh(true, pollInterval))

	time.Sleep(5 * pollInterval)
	assert.Equal(t, 0, gw.checkCount())
	assert.Equal(t, Loading, c.Snapshot().Phase)

	close(release)
	waitIdle(t, c)
	require.Eventually(t, func() bool { return gw.checkCount() >= 1 }, waitFor, tickEvery)
}

func TestSetAutoRefresh_OffStopsChecks(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw, WithAutoRefresh(true, pollInterval))
	waitIdle(t, c)
	require.Eventually(t, func() bool { return gw.checkCount() >= 2 }, waitFor, tickEvery)

	require.NoError(t, c.SetAutoRefresh(false))
	time.Sleep(2 * pollInterval)
	stopped := gw.checkCount()
	time.Sleep(5 * pollInterval)
	assert.Equal(t, stopped, gw.checkCount())
	assert.False(t, c.Snapshot().AutoRefresh)
	assert.Equal(t, Idle, c.Snapshot().Phase)

	require.NoError(t, c.SetAutoRefresh(true))
	require.Eventually(t, func() bool { return gw.checkCount() > stopped }, waitFor, tickEvery)
}

func TestSetRefreshInterval(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw, WithAutoRefresh(true, time.Hour))
	waitIdle(t, c)

	time.Sleep(3 * pollInterval)
	require.Equal(t, 0, gw.checkCount())

	require.NoError(t, c.SetRefreshInterval(pollInterval))
	require.Eventually(t, func() bool { return gw.checkCount() >= 1 }, waitFor, tickEvery)
	assert.Equal(t, pollInterval, c.Snapshot().RefreshInterval)

	var verr *sensors.ValidationError
	require.ErrorAs(t, c.SetRefreshInterval(0), &verr)
}

func TestClose_StopsWorkAndDropsLateResults(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(ctx context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		<-ctx.Done()
		return sensors.Window{Records: makeRecords(s, 99)}, nil
	}}
	c := New(gw, WithAutoRefresh(true, pollInterval))
	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return gw.fetchCount() == 1 }, waitFor, tickEvery)

	c.Close()
	c.Close()

	snap := c.Snapshot()
	assert.Empty(t, snap.Cache.Full)
	assert.Equal(t, Loading, snap.Phase)
	assert.ErrorIs(t, c.Refresh(), ErrClosed)
	assert.ErrorIs(t, c.Start(context.Background()), ErrClosed)

	checks := gw.checkCount()
	time.Sleep(3 * pollInterval)
	assert.Equal(t, checks, gw.checkCount())

	for range c.Updates() {
	}
}

func TestUpdates_Coalesce(t *testing.T) {
	gw := &fakeGateway{}
	c := New(gw)
	require.NoError(t, c.SetRecordLimit(1000))
	require.NoError(t, c.SetRecordLimit(2000))

	select {
	case <-c.Updates():
	default:
		t.Fatal("expected a pending update")
	}
	select {
	case <-c.Updates():
		t.Fatal("updates did not coalesce")
	default:
	}
	assert.Equal(t, 0, gw.fetchCount(), "nothing is fetched before Start")
	c.Close()
}

func TestMutationsReloadInForeground(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw)
	waitIdle(t, c)

	n, err := c.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	waitIdle(t, c)
	assert.Equal(t, 2, gw.fetchCount())

	path := filepath.Join(t.TempDir(), "readings.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,co2_ppm\n"), 0o600))
	n, err = c.UploadCSV(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "readings.csv", gw.uploaded)
	waitIdle(t, c)
	assert.Equal(t, 3, gw.fetchCount())

	_, err = c.UploadCSV(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	var verr *sensors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 3, gw.fetchCount())
}

func TestPreviewLifecycle(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw)
	waitIdle(t, c)

	_, err := c.SavePreview(context.Background())
	var verr *sensors.ValidationError
	require.ErrorAs(t, err, &verr)

	preview, err := c.GeneratePreview(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, preview.Raw, 4)
	require.NotNil(t, c.Snapshot().Preview)
	assert.Equal(t, 1, gw.fetchCount(), "generating a preview does not reload")

	n, err := c.SavePreview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, gw.saved, 4)
	waitIdle(t, c)
	assert.Nil(t, c.Snapshot().Preview)
	assert.Equal(t, 2, gw.fetchCount())
}

func TestAvailableDates(t *testing.T) {
	gw := &fakeGateway{}
	c := startController(t, gw)

	bounds, err := c.AvailableDates(context.Background())
	require.NoError(t, err)
	require.Contains(t, bounds, sensors.Air)
	assert.Equal(t, bounds, c.Snapshot().Bounds)
}

func TestDisplayGaugeFollowsLimit(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(_ context.Context, s sensors.Type, _ sensors.WindowQuery) (sensors.Window, error) {
		return sensors.Window{Records: makeRecords(s, 1000)}, nil
	}}
	reg := metricsFor(t)
	c := startController(t, gw, WithMetrics(reg), WithFilter(state.DefaultFilter()))
	waitIdle(t, c)

	assert.Equal(t, 500.0, testutil.ToFloat64(reg.DisplayRecords.WithLabelValues("air")))
	require.NoError(t, c.SetRecordLimit(2000))
	assert.Equal(t, 1000.0, testutil.ToFloat64(reg.DisplayRecords.WithLabelValues("air")))
}

func metricsFor(t *testing.T) *metrics.Metrics {
	t.Helper()
	m, err := metrics.New(nil)
	require.NoError(t, err)
	return m
}
