package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gamc/sensorwatch/internal/metrics"
	"github.com/gamc/sensorwatch/internal/sensors"
	"github.com/gamc/sensorwatch/internal/state"
)

// DefaultRefreshInterval is the poll period used when none is configured.
const DefaultRefreshInterval = 10 * time.Second

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("controller closed")

// OfflineReporter exposes the session's persisted offline flag.
type OfflineReporter interface {
	Offline() bool
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Phase           Phase
	Filter          state.Filter
	Cache           state.CacheSnapshot
	AutoRefresh     bool
	RefreshInterval time.Duration
	LastDataCheck   time.Time
	LastRefresh     time.Time
	Notice          Notice
	Bounds          map[sensors.Type]sensors.DateBounds
	Preview         *sensors.Preview
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics records fetch and check outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithOffline sets the source of the offline flag.
func WithOffline(o OfflineReporter) Option {
	return func(c *Controller) { c.offline = o }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFilter sets the initial selection.
func WithFilter(f state.Filter) Option {
	return func(c *Controller) { c.filter = f }
}

// WithAutoRefresh sets the initial polling state and period.
func WithAutoRefresh(enabled bool, interval time.Duration) Option {
	return func(c *Controller) {
		c.autoRefresh = enabled
		if interval > 0 {
			c.interval = interval
		}
	}
}

// Controller owns the filter, the record cache and the fetch/poll lifecycle
// for one dashboard. All state is guarded by mu.
type Controller struct {
	gw      sensors.Gateway
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	offline OfflineReporter
	now     func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	updates chan struct{}

	mu            sync.Mutex
	started       bool
	closed        bool
	filter        state.Filter
	cache         *state.Cache
	phase         Phase
	autoRefresh   bool
	interval      time.Duration
	lastDataCheck time.Time
	lastRefresh   time.Time
	notice        Notice
	bounds        map[sensors.Type]sensors.DateBounds
	preview       *sensors.Preview
	previewFor    sensors.Type

	// Request tokens. seq grows on every full fetch; latest holds the last
	// token issued per sensor type.
	seq         uint64
	latest      map[sensors.Type]uint64
	fetchCancel context.CancelFunc

	// Poll timer generation. pollOwner is the generation that moved the
	// phase to PollChecking.
	pollGen       uint64
	pollOwner     uint64
	pollStop      context.CancelFunc
	checkInFlight map[sensors.Type]bool
}

// New returns a controller over gw. Nothing is fetched until Start.
func New(gw sensors.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:            gw,
		log:           zap.NewNop().Sugar(),
		now:           time.Now,
		updates:       make(chan struct{}, 1),
		filter:        state.DefaultFilter(),
		interval:      DefaultRefreshInterval,
		latest:        make(map[sensors.Type]uint64),
		checkInFlight: make(map[sensors.Type]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = state.NewCache(c.filter.RecordLimit)
	return c
}

// Start issues the initial foreground fetch and arms the poll timer when
// auto refresh is on. Work started by the controller ends when ctx is done
// or Close is called.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lastDataCheck = c.now()
	c.log.Infow("controller started", "filter", c.filter.Describe(), "auto_refresh", c.autoRefresh, "interval", c.interval)
	c.startFetchLocked(false)
	c.armPollLocked()
	c.notifyLocked()
	return nil
}

// Close stops the poll timer, cancels in-flight work and waits for it. Results
// arriving afterwards are dropped. The Updates channel is closed on return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	close(c.updates)
	c.mu.Unlock()
	c.log.Infow("controller closed")
}

// Updates delivers a signal after every state change. Signals coalesce: a
// slow reader sees one pending signal and should read Snapshot.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	bounds := make(map[sensors.Type]sensors.DateBounds, len(c.bounds))
	for k, v := range c.bounds {
		bounds[k] = v
	}
	return Snapshot{
		Phase:           c.phase,
		Filter:          c.filter,
		Cache:           c.cache.Snapshot(),
		AutoRefresh:     c.autoRefresh,
		RefreshInterval: c.interval,
		LastDataCheck:   c.lastDataCheck,
		LastRefresh:     c.lastRefresh,
		Notice:          c.notice,
		Bounds:          bounds,
		Preview:         c.preview,
	}
}

// SetSensor switches the sensor type. It refetches and re-arms the poll
// timer; choosing the current type does nothing.
func (c *Controller) SetSensor(t sensors.Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.filter.WithSensor(t)
	if err != nil {
		return c.rejectLocked(err)
	}
	if c.closed {
		return ErrClosed
	}
	if next.Sensor == c.filter.Sensor {
		return nil
	}
	c.log.Infow("sensor changed", "from", c.filter.Sensor, "to", next.Sensor)
	c.filter = next
	c.startFetchLocked(false)
	c.armPollLocked()
	c.notifyLocked()
	return nil
}

// SetDaysBack selects the last n days, dropping any date range.
func (c *Controller) SetDaysBack(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.filter.WithDaysBack(n)
	if err != nil {
		return c.rejectLocked(err)
	}
	if c.closed {
		return ErrClosed
	}
	if next.SameSelection(c.filter) {
		return nil
	}
	c.filter = next
	c.startFetchLocked(false)
	c.notifyLocked()
	return nil
}

// ApplyDateRange validates r and fetches everything in it. Applying a range
// always fetches, even when it equals the current one.
func (c *Controller) ApplyDateRange(r sensors.DateRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.filter.WithDateRange(r)
	if err != nil {
		return c.rejectLocked(err)
	}
	if c.closed {
		return ErrClosed
	}
	c.log.Infow("date range applied", "range", r.String())
	c.filter = next
	c.startFetchLocked(false)
	c.notifyLocked()
	return nil
}

// ClearDateRange falls back to days back. Without a range it does nothing.
func (c *Controller) ClearDateRange() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.filter.DateRange == nil {
		return nil
	}
	c.filter = c.filter.WithoutDateRange()
	c.startFetchLocked(false)
	c.notifyLocked()
	return nil
}

// Refresh forces a foreground full fetch for the current selection. It is
// the way out of the Error and Offline phases.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.startFetchLocked(false)
	c.notifyLocked()
	return nil
}

// SetRecordLimit resizes the display window. It never reaches the network.
func (c *Controller) SetRecordLimit(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.filter.WithRecordLimit(n)
	if err != nil {
		return c.rejectLocked(err)
	}
	if c.closed {
		return ErrClosed
	}
	c.filter = next
	c.cache.SetLimit(n)
	c.recordDisplayLocked()
	c.notifyLocked()
	return nil
}

// SetAutoRefresh turns polling on or off. The phase is left alone.
func (c *Controller) SetAutoRefresh(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.autoRefresh == enabled {
		return nil
	}
	c.autoRefresh = enabled
	c.log.Infow("auto refresh toggled", "enabled", enabled)
	c.armPollLocked()
	c.notifyLocked()
	return nil
}

// SetRefreshInterval changes the poll period and re-arms the timer.
func (c *Controller) SetRefreshInterval(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		return c.rejectLocked(&sensors.ValidationError{Field: "refresh interval", Reason: "must be positive"})
	}
	if c.closed {
		return ErrClosed
	}
	if d == c.interval {
		return nil
	}
	c.interval = d
	c.armPollLocked()
	c.notifyLocked()
	return nil
}

// DismissNotice clears the visible notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice.Empty() {
		return
	}
	c.notice = Notice{}
	c.notifyLocked()
}

// AvailableDates loads the stored span per sensor type.
func (c *Controller) AvailableDates(ctx context.Context) (map[sensors.Type]sensors.DateBounds, error) {
	bounds, err := c.gw.AvailableDates(ctx)
	if err != nil {
		c.log.Warnw("available dates failed", "error", err)
		return nil, c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bounds = bounds
	c.notifyLocked()
	return bounds, nil
}

// Clear deletes every record of the active sensor type on the backend.
func (c *Controller) Clear(ctx context.Context) (int, error) {
	sensor := c.activeSensor()
	n, err := c.gw.Clear(ctx, sensor)
	if err != nil {
		c.log.Warnw("clear failed", "sensor", sensor, "error", err)
		return 0, c.fail(err)
	}
	c.log.Infow("sensor data cleared", "sensor", sensor, "deleted", n)
	c.invalidate()
	return n, nil
}

// UploadCSV sends the CSV file at path to the active sensor type.
func (c *Controller) UploadCSV(ctx context.Context, path string) (int, error) {
	sensor := c.activeSensor()
	file, err := os.Open(path)
	if err != nil {
		return 0, c.fail(&sensors.ValidationError{Field: "file", Reason: err.Error()})
	}
	defer file.Close()

	n, err := c.gw.UploadCSV(ctx, sensor, filepath.Base(path), file)
	if err != nil {
		c.log.Warnw("upload failed", "sensor", sensor, "file", path, "error", err)
		return 0, c.fail(err)
	}
	c.log.Infow("csv uploaded", "sensor", sensor, "file", path, "inserted", n)
	c.invalidate()
	return n, nil
}

// GeneratePreview asks the backend for count synthetic records over the
// current selection. The preview is held until saved or replaced.
func (c *Controller) GeneratePreview(ctx context.Context, count int) (sensors.Preview, error) {
	c.mu.Lock()
	sensor := c.filter.Sensor
	req := sensors.PreviewRequest{Count: count, DaysBack: c.filter.DaysBack}
	if c.filter.DateRange != nil {
		rng := *c.filter.DateRange
		req.DateRange = &rng
	}
	c.mu.Unlock()

	preview, err := c.gw.GeneratePreview(ctx, sensor, req)
	if err != nil {
		c.log.Warnw("preview failed", "sensor", sensor, "error", err)
		return sensors.Preview{}, c.fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.preview = &preview
	c.previewFor = sensor
	c.notifyLocked()
	return preview, nil
}

// SavePreview stores the pending preview for the sensor type it was
// generated for.
func (c *Controller) SavePreview(ctx context.Context) (int, error) {
	c.mu.Lock()
	preview, sensor := c.preview, c.previewFor
	c.mu.Unlock()
	if preview == nil || len(preview.Raw) == 0 {
		return 0, c.fail(&sensors.ValidationError{Field: "preview", Reason: "nothing to save"})
	}

	n, err := c.gw.SavePreview(ctx, sensor, preview.Raw)
	if err != nil {
		c.log.Warnw("save preview failed", "sensor", sensor, "error", err)
		return 0, c.fail(err)
	}
	c.log.Infow("preview saved", "sensor", sensor, "inserted", n)

	c.mu.Lock()
	if c.preview == preview {
		c.preview = nil
	}
	c.mu.Unlock()
	c.invalidate()
	return n, nil
}

// DiscardPreview drops the pending preview.
func (c *Controller) DiscardPreview() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview == nil {
		return
	}
	c.preview = nil
	c.notifyLocked()
}

func (c *Controller) activeSensor() sensors.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Sensor
}

// invalidate empties the cache after a backend mutation and reloads in the
// foreground.
func (c *Controller) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cache.Reset()
	c.startFetchLocked(false)
	c.notifyLocked()
}

// fail publishes err as the visible notice and returns it.
func (c *Controller) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejectLocked(err)
}

func (c *Controller) rejectLocked(err error) error {
	if c.closed {
		return err
	}
	c.notice = Present(err, c.offlineLocked())
	c.notifyLocked()
	return err
}

func (c *Controller) offlineLocked() bool {
	return c.offline != nil && c.offline.Offline()
}

// startFetchLocked issues a full fetch for the current filter. A previous
// fetch is cancelled; its result, if any, fails the token check.
func (c *Controller) startFetchLocked(silent bool) {
	if !c.started || c.closed {
		return
	}
	if c.fetchCancel != nil {
		c.fetchCancel()
	}
	c.seq++
	token := c.seq
	sensor := c.filter.Sensor
	query := c.filter.Query()
	c.latest[sensor] = token

	ctx, cancel := context.WithCancel(c.ctx)
	c.fetchCancel = cancel
	if silent {
		c.phase = SilentRefreshing
	} else {
		c.phase = Loading
	}
	issued := c.now()
	c.log.Debugw("fetch started", "token", token, "filter", c.filter.Describe(), "silent", silent)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		win, err := c.gw.FetchWindow(ctx, sensor, query)
		c.finishFetch(token, sensor, silent, issued, win, err)
	}()
}

func (c *Controller) finishFetch(token uint64, sensor sensors.Type, silent bool, issued time.Time, win sensors.Window, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	mode := metrics.ModeForeground
	if silent {
		mode = metrics.ModeSilent
	}
	if c.latest[sensor] != token || c.filter.Sensor != sensor {
		c.log.Debugw("stale fetch discarded", "token", token, "sensor", sensor, "latest", c.latest[sensor])
		c.metrics.Fetch(string(sensor), mode, metrics.ResultStale)
		return
	}
	c.fetchCancel = nil

	switch {
	case err == nil:
		c.cache.Replace(win.Records, win.Stats)
		c.lastRefresh = c.now()
		if issued.After(c.lastDataCheck) {
			c.lastDataCheck = issued
		}
		c.phase = Idle
		if !silent {
			c.notice = Notice{}
		}
		c.log.Infow("fetch finished", "sensor", sensor, "records", len(win.Records), "silent", silent)
		c.metrics.Fetch(string(sensor), mode, metrics.ResultOK)
	case silent:
		c.lastRefresh = c.now()
		c.phase = Idle
		c.log.Warnw("background refresh failed", "sensor", sensor, "error", err)
		c.metrics.Fetch(string(sensor), mode, metrics.ResultError)
	default:
		c.cache.Reset()
		c.notice = Present(err, c.offlineLocked())
		if c.notice.Class == ClassOfflineDegraded {
			c.phase = Offline
		} else {
			c.phase = Error
		}
		c.log.Errorw("fetch failed", "sensor", sensor, "class", c.notice.Class, "error", err)
		c.metrics.Fetch(string(sensor), mode, metrics.ResultError)
	}
	c.recordDisplayLocked()
	c.notifyLocked()
}

func (c *Controller) recordDisplayLocked() {
	c.metrics.Display(string(c.filter.Sensor), min(c.filter.RecordLimit, c.cache.Len()))
}

func (c *Controller) notifyLocked() {
	if c.closed {
		return
	}
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
