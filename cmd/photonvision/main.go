// Command photonvision is the vision coprocessor settings daemon. It owns
// the configuration root, serves the settings API, and keeps the on-disk
// settings store up to date.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/photonvision/photonvision-go/internal/api"
	"github.com/photonvision/photonvision-go/internal/config"
	"github.com/photonvision/photonvision-go/internal/hardware"
	"github.com/photonvision/photonvision-go/internal/logging"
	"github.com/photonvision/photonvision-go/internal/platform"
	"github.com/photonvision/photonvision-go/internal/zeroconf"
)

func main() {
	var (
		addr   = flag.String("addr", ":5800", "HTTP listen address")
		cfgDir = flag.String("config-dir", "photonvision_config", "configuration root directory")
		legacy = flag.Bool("legacy", false, "use the legacy directory-per-camera settings backend")
		debug  = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	backend := config.BackendSQL
	if *legacy {
		backend = config.BackendLegacy
	}
	mgr := config.New(*cfgDir, config.NewProvider(backend, *cfgDir))
	defer mgr.Stop()

	// Tee logs into this boot's log file now that the root exists.
	closeLog, err := logging.Setup(mgr.LogPath(), *debug)
	if err != nil {
		slog.Warn("cannot open log file, logging to stderr only", "err", err)
	} else {
		defer closeLog()
	}
	logging.PruneOldLogs(mgr.LogsDir(), logging.DefaultRetainedLogs)

	plat := platform.Detect()
	slog.Info("starting up",
		"os", plat.OSName,
		"kernel", plat.KernelVersion,
		"model", plat.HardwareModel,
	)

	if err := mgr.Load(); err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded",
		"root", *cfgDir,
		"cameras", len(mgr.GetConfig().CameraConfigurations),
	)

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hw := hardware.New(mgr.GetConfig().HardwareConfig)
	hw.SetStatusLED(true)
	defer hw.SetStatusLED(false)

	// Zeroconf mDNS registration
	hostname := mgr.GetConfig().NetworkConfig.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	zc := zeroconf.New(hostname, 5800)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(mgr, hw),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // settings exports can be large
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("PhotonVision settings daemon listening", "addr", *addr, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the save worker, then commit whatever state we hold so a
	// pending debounce isn't lost across the restart.
	mgr.Stop()
	if err := mgr.SaveToDisk(); err != nil {
		slog.Warn("final settings flush failed", "err", err)
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}
