package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"smartplace-sync/browser"
	"smartplace-sync/config"
	"smartplace-sync/logging"
	"smartplace-sync/metrics"
	"smartplace-sync/syncer"
)

// app is the wiring shared by the commands that drive the portal.
type app struct {
	cfg      *config.Config
	log      *logging.ZapLogger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	launcher browser.Launcher
	service  *syncer.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	launcher, err := browser.NewLauncher(cfg.Browser, browser.Options{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.MetricsNamespace, reg)

	return &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		metrics:  m,
		launcher: launcher,
		service:  syncer.NewService(cfg, launcher, log, m),
	}, nil
}

func (a *app) Close() {
	if err := a.launcher.Close(); err != nil {
		a.log.Warn("failed to stop browser driver", "error", err)
	}
	_ = a.log.Sync()
}
