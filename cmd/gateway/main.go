package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
)

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Load configuration
	ch := config.NewConfigHandler()
	gwConfig, err := ch.Config()
	if err != nil {
		slog.Error("GATEWAY", "message", "loading the configuration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("GATEWAY", "message", "loaded config", "config", gwConfig)
	err = gwConfig.Validate()
	if err != nil {
		slog.Error("GATEWAY", "message", "the config validation failed", "error", err)
		os.Exit(1)
	}
	// Set log level to "debug" if activated
	if gwConfig.DebugMode {
		logLevel.Set(slog.LevelDebug)
	}
	// Only the debug mode can be changed without a restart
	ch.HandleChanges(func(newConfig config.Config, err error) {
		if err != nil {
			slog.Error("GATEWAY", "message", "reloading the configuration failed", "error", err)
			return
		}
		if newConfig.DebugMode {
			logLevel.Set(slog.LevelDebug)
		} else {
			logLevel.Set(slog.LevelInfo)
		}
		slog.Info("GATEWAY", "message", "reloaded config", "debugMode", newConfig.DebugMode)
	})
	ch.Watch()
	// Setup
	gw, err := newGateway(gwConfig)
	if err != nil {
		slog.Error("GATEWAY", "message", "gateway initialization failed", "error", err)
		os.Exit(1)
	}
	err = gw.clients.Start()
	if err != nil {
		slog.Error("GATEWAY", "message", "starting the client pool eviction failed", "error", err)
		os.Exit(1)
	}
	defer gw.clients.Stop()
	if gw.metrics != nil {
		go func() {
			err := gw.metrics.Start(fmt.Sprintf(":%d", gwConfig.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("GATEWAY", "message", "prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// Start server
	address := fmt.Sprintf("%s:%d", gwConfig.Server.Host, gwConfig.Server.Port)
	slog.Info("GATEWAY", "message", "starting the server on address "+address)
	go func() {
		err := gw.echo.Start(address)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("GATEWAY", "message", "the server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("GATEWAY", "message", "received signal to shut down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if gw.metrics != nil {
		_ = gw.metrics.Shutdown(ctx)
	}
	if err := gw.echo.Shutdown(ctx); err != nil {
		slog.Error("GATEWAY", "message", "shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
}
