package controller

import (
	"context"
	"errors"
	"time"

	"github.com/gamc/sensorwatch/internal/metrics"
	"github.com/gamc/sensorwatch/internal/sensors"
)

// armPollLocked replaces the poll timer goroutine. It runs only when auto
// refresh, the interval or the sensor type changes; the goroutine reads
// lastDataCheck from the controller on every tick.
func (c *Controller) armPollLocked() {
	if c.pollStop != nil {
		c.pollStop()
		c.pollStop = nil
	}
	if !c.started || c.closed || !c.autoRefresh {
		return
	}
	c.pollGen++
	gen := c.pollGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.pollStop = cancel
	interval := c.interval
	c.log.Debugw("poll timer armed", "generation", gen, "interval", interval, "sensor", c.filter.Sensor)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.pollLoop(ctx, gen, interval)
	}()
}

func (c *Controller) pollLoop(ctx context.Context, gen uint64, interval time.Duration) {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			c.tick(ctx, gen)
			timer.Reset(interval)
		}
	}
}

// tick runs one check for new data. It is a no-op unless the controller is
// idle, so a tick never overlaps a fetch or another check.
func (c *Controller) tick(ctx context.Context, gen uint64) {
	c.mu.Lock()
	sensor := c.filter.Sensor
	if c.closed || gen != c.pollGen || !c.autoRefresh || c.phase != Idle || c.checkInFlight[sensor] {
		c.mu.Unlock()
		return
	}
	since := c.lastDataCheck
	issued := c.now()
	c.checkInFlight[sensor] = true
	c.phase = PollChecking
	c.pollOwner = gen
	c.notifyLocked()
	c.mu.Unlock()

	res, err := c.gw.CheckNewData(ctx, sensor, since)
	c.finishCheck(gen, sensor, issued, res, err)
}

func (c *Controller) finishCheck(gen uint64, sensor sensors.Type, issued time.Time, res sensors.NewDataCheck, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checkInFlight, sensor)
	if c.closed {
		return
	}
	owns := c.phase == PollChecking && c.pollOwner == gen

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.log.Debugw("data check cancelled", "sensor", sensor)
		} else {
			c.log.Warnw("data check failed", "sensor", sensor, "error", err)
			c.metrics.Check(string(sensor), metrics.ResultError)
		}
		if owns {
			c.phase = Idle
			c.notifyLocked()
		}
		return
	}

	if sensor == c.filter.Sensor {
		c.lastDataCheck = issued
	}
	if !res.HasNew {
		c.metrics.Check(string(sensor), metrics.ResultNone)
		c.log.Debugw("no new data", "sensor", sensor)
		if owns {
			c.phase = Idle
		}
		c.notifyLocked()
		return
	}

	c.metrics.Check(string(sensor), metrics.ResultNew)
	c.log.Infow("new data available", "sensor", sensor, "count", res.NewCount, "latest", res.Latest)
	if owns && sensor == c.filter.Sensor {
		c.startFetchLocked(true)
	} else if owns {
		c.phase = Idle
	}
	c.notifyLocked()
}
