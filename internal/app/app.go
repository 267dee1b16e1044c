package app

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/gamc/sensorwatch/internal/auth"
	"github.com/gamc/sensorwatch/internal/config"
	"github.com/gamc/sensorwatch/internal/controller"
	"github.com/gamc/sensorwatch/internal/logging"
	"github.com/gamc/sensorwatch/internal/metrics"
	"github.com/gamc/sensorwatch/internal/prefs"
	"github.com/gamc/sensorwatch/internal/sensors"
	"github.com/gamc/sensorwatch/internal/ui"
)

// Options configure the sensorwatch application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/sensorwatch/prefs.toml
	PollEvery  int    // seconds; zero uses the saved preference
	Sensor     string // overrides the configured sensor type
}

// Run boots the dashboard until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if s := strings.TrimSpace(opts.Sensor); s != "" {
		t, err := sensors.ParseType(s)
		if err != nil {
			return err
		}
		cfg.Sensor = t
	}

	log, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = log.Close() }()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, _ := prefs.Load(prefsPath)
	if opts.PollEvery > 0 {
		userPrefs.RefreshSeconds = prefs.ClampRefresh(opts.PollEvery)
	}

	session, err := auth.Load(cfg.SessionFile)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	client, err := sensors.NewClient(cfg.APIURL,
		sensors.WithSession(session),
		sensors.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return fmt.Errorf("init sensors client: %w", err)
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	filter := cfg.Filter()
	filter.RecordLimit = userPrefs.RecordLimit

	ctrl := controller.New(client,
		controller.WithLogger(log.SugaredLogger),
		controller.WithMetrics(m),
		controller.WithOffline(session),
		controller.WithFilter(filter),
		controller.WithAutoRefresh(userPrefs.AutoRefresh, userPrefs.RefreshInterval()),
	)
	defer ctrl.Close()

	log.Infow("starting sensorwatch",
		"api_url", cfg.APIURL,
		"sensor", filter.Sensor,
		"days_back", filter.DaysBack,
		"record_limit", filter.RecordLimit,
		"offline", session.Offline(),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen metrics: %w", err)
		}
		log.Infow("serving metrics", "addr", ln.Addr().String())
		g.Go(func() error {
			return serveMetrics(gctx, ln, reg, log.SugaredLogger)
		})
	}

	if err := ctrl.Start(gctx); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}

	uiOpts := ui.Options{
		Context:   gctx,
		Dashboard: ctrl,
		LogPath:   cfg.LogFile,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		Now:       time.Now,
	}
	g.Go(func() error {
		defer cancel()
		return ui.Run(uiOpts, func(send func(tea.Msg)) {
			g.Go(func() error {
				forwardUpdates(gctx, ctrl.Updates(), send)
				return nil
			})
		})
	})

	err = g.Wait()
	log.Infow("sensorwatch stopped", "error", err)
	return err
}
