// Package main runs the live overheat monitor: it connects to the HUD
// sensor over WebSocket, drives the death/trade state machine at a fixed
// cadence, and exposes an HTTP control API with Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtsuiOcha/overheat-punisher/internal/classify"
	"github.com/AtsuiOcha/overheat-punisher/internal/config"
	"github.com/AtsuiOcha/overheat-punisher/internal/control"
	"github.com/AtsuiOcha/overheat-punisher/internal/detect"
	"github.com/AtsuiOcha/overheat-punisher/internal/hudfeed"
	"github.com/AtsuiOcha/overheat-punisher/internal/monitor"
	"github.com/AtsuiOcha/overheat-punisher/internal/notify"
	"github.com/AtsuiOcha/overheat-punisher/internal/observability"
)

func main() {
	// Parse flags (env vars as defaults, config file underneath)
	configPath := flag.String("config", os.Getenv("OVERHEAT_CONFIG"), "Path to YAML config file")
	player := flag.String("player", os.Getenv("OVERHEAT_PLAYER"), "Monitored player name (overrides config)")
	sensorEndpoint := flag.String("sensor-endpoint", os.Getenv("OVERHEAT_SENSOR_ENDPOINT"), "HUD sensor WebSocket URL (overrides config)")
	controlAddr := flag.String("control-addr", "", "Control API listen address (overrides config)")
	autostart := flag.Bool("autostart", true, "Start monitoring immediately instead of waiting for the control API")

	flag.Parse()

	logger := log.New(os.Stdout, "[monitor] ", log.LstdFlags)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *player != "" {
		cfg.PlayerName = *player
	}
	if *sensorEndpoint != "" {
		cfg.SensorEndpoint = *sensorEndpoint
	}
	if *controlAddr != "" {
		cfg.ControlAddr = *controlAddr
	}
	if cfg.PlayerName == "" {
		logger.Fatal("--player (or player_name in config) is required")
	}
	if cfg.SensorEndpoint == "" {
		logger.Fatal("--sensor-endpoint (or sensor_endpoint in config) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := hudfeed.NewWSSource(ctx, cfg.SensorEndpoint, nil, logger)
	if err != nil {
		logger.Fatalf("connect to sensor: %v", err)
	}
	defer source.Close()

	minDiff := cfg.MinTradeableDiff
	loop := monitor.NewLoop(monitor.Options{
		Player: cfg.PlayerName,
		Source: source,
		Reader: hudfeed.NewReader(),
		Detector: detect.New(detect.Options{
			Player:           cfg.PlayerName,
			MinTradeableDiff: &minDiff,
			Logger:           logger,
		}),
		Classifier:   classify.New(classify.Options{TradeWindow: cfg.TradeWindow()}),
		Notifier:     notify.NewLogNotifier(logger),
		Metrics:      observability.NewMetrics(""),
		PollInterval: cfg.PollInterval(),
		Logger:       logger,
	})
	handle := monitor.NewHandle(loop)

	if *autostart {
		if err := handle.Start(ctx); err != nil {
			logger.Fatalf("start monitor worker: %v", err)
		}
		logger.Printf("monitoring %s (trade window %s, poll every %s)",
			cfg.PlayerName, cfg.TradeWindow(), cfg.PollInterval())
	}

	controlServer := control.NewServer(ctx, handle, logger)
	httpServer := &http.Server{
		Addr:    cfg.ControlAddr,
		Handler: controlServer.Handler(),
	}

	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("control API shutdown: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Printf("control API listening on %s", cfg.ControlAddr)
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("control API: %v", err)
	}

	if handle.Running() {
		if err := handle.Stop(); err != nil && !errors.Is(err, monitor.ErrNotRunning) {
			logger.Printf("stop monitor worker: %v", err)
		}
	}
	done <- nil

	logger.Println("Shutdown complete")
}

// loadConfig returns the file config when a path is given, or defaults
// with required fields left to flags.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
