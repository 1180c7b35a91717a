// Package main is the crypto trading engine process entrypoint: it loads
// configuration, wires the full dependency graph (internal/config.Build),
// starts every always-on and reactive component, and blocks until an
// interrupt or terminal signal requests shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rishav/cryptoengine/internal/config"
)

var (
	// Version is set via ldflags at build time.
	Version = "dev"

	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "engine",
	Short:   "Runs the real-time crypto trading engine",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to a simulated-exchange config)")
}

func run(cmd *cobra.Command, args []string) error {
	doc, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(doc.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	rt, err := config.Build(doc, log)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	log.Info().Int("exchanges", len(doc.Exchanges)).Msg("engine started")

	var metricsServer *http.Server
	if doc.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: doc.Metrics.ListenAddress, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		log.Info().Str("addr", doc.Metrics.ListenAddress).Msg("metrics endpoint listening")
	}

	statusMux := http.NewServeMux()
	statusMux.HandleFunc("/status", statusHandler(rt))
	statusServer := &http.Server{Addr: doc.HTTP.ListenAddress, Handler: statusMux}
	go func() {
		if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server failed")
		}
	}()
	log.Info().Str("addr", doc.HTTP.ListenAddress).Msg("status endpoint listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	_ = statusServer.Shutdown(shutdownCtx)
	if err := rt.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
		return err
	}
	log.Info().Msg("engine stopped")
	return nil
}

func loadConfig() (*config.Document, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}
