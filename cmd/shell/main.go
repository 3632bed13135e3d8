package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/app"
	"github.com/deeptrail/appshell/internal/attribution"
	"github.com/deeptrail/appshell/internal/browser"
	"github.com/deeptrail/appshell/internal/connectivity"
	"github.com/deeptrail/appshell/internal/crashsink"
	"github.com/deeptrail/appshell/internal/infrastructure/config"
	"github.com/deeptrail/appshell/internal/infrastructure/monitoring"
	"github.com/deeptrail/appshell/internal/logging"
	"github.com/deeptrail/appshell/internal/resolver"
	"github.com/deeptrail/appshell/internal/server"
	"github.com/deeptrail/appshell/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config overlay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Configuration errors are fatal; no resolution logic runs.
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics()
	sink := crashsink.NewLogSink(logger.Named("crashsink"), metrics)

	bridge := attribution.NewBridge()
	gateway := attribution.NewGateway(bridge, cfg.App.DevKey, logger.Named("attribution"))

	local := store.NewFileLocal(cfg.App.StateDir, logger.Named("store"))
	remote := store.NewRemote(cfg.Endpoints.BaseURL, cfg.Timeouts.Remote, logger.Named("store"), sink, metrics)
	targets := store.New(local, remote)

	coord := resolver.New(
		resolver.Config{
			FallbackURL:      cfg.App.FallbackURL,
			ProjectID:        cfg.App.ProjectID,
			DeviceIDWait:     cfg.Timeouts.DeviceIDWait,
			ConversionWait:   cfg.Timeouts.ConversionWait,
			FallbackDeadline: cfg.Timeouts.FallbackDeadline,
		},
		gateway,
		targets,
		nil, // view wired below, it needs the coordinator's page events
		sink,
		metrics,
		logger.Named("resolver"),
	)
	view := browser.NewLogView(logger.Named("browser"), coord.PageEvents())
	coord.SetView(view)

	monitor := connectivity.NewProbe(cfg.Endpoints.BaseURL, cfg.Timeouts.ProbeInterval, logger.Named("connectivity"))
	go monitor.Start(ctx)

	if cfg.StatusAPI.Enabled {
		srv := server.New(server.Config{Addr: cfg.StatusAPI.Addr}, coord, bridge, monitor, metrics, logger.Named("server"))
		go func() {
			if err := srv.Run(); err != nil {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	shell := app.NewShell(coord, monitor, logger.Named("shell"))
	shell.Run(ctx)
}
