// SPDX-License-Identifier: MIT

// Command panopto-export exports the recordings of a Panopto folder to CSV
// and, via the report subcommand, builds the learning-object tables from
// the newest LibGuides link-crawler report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/UniSotonLibrary/libguides-learning-objects/internal/auth"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/config"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/export"
	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/metrics"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/panopto"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

// Exit codes: 0 full success, 1 failure, 2 partial export (some rows were
// written but the folder was not fully fetched).
const (
	exitOK      = 0
	exitFailure = 1
	exitPartial = 2
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "report" {
		os.Exit(runReport(os.Args[2:]))
	}
	os.Exit(runExport(os.Args[1:]))
}

func runExport(args []string) int {
	fs := flag.NewFlagSet("panopto-export", flag.ExitOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	folder := fs.String("folder", "", "Panopto folder ID to export (overrides config)")
	output := fs.String("out", "", "output CSV path (overrides config)")
	metricsListen := fs.String("metrics-listen", "", "address for the Prometheus /metrics listener (overrides config)")
	_ = fs.Parse(args)

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return exitOK
	}

	xlog.Configure(xlog.Config{
		Level:   "info",
		Service: "panopto-export",
		Version: version,
	})
	logger := xlog.WithComponent("cli")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = xlog.ContextWithRunID(ctx, uuid.NewString())

	// Flags override the environment, which overrides the file.
	setFlagEnv(config.EnvFolderID, *folder)
	setFlagEnv(config.EnvOutput, *output)
	setFlagEnv(config.EnvMetricsListen, *metricsListen)

	cfg, err := config.NewLoader(*configPath, version).Load()
	if err != nil {
		metrics.IncExportFailure("config")
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
		return exitFailure
	}

	xlog.SetLevel(cfg.LogLevel)

	logger.Info().
		Str("event", "config.loaded").
		Fields(cfg.Masked()).
		Msg("configuration loaded")

	stopMetrics := startMetricsListener(cfg.MetricsListen, logger)
	defer stopMetrics()

	tokens, err := auth.Config{
		Server:       cfg.Server,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		GrantType:    cfg.GrantType,
		RedirectPort: cfg.RedirectPort,
		InsecureTLS:  !cfg.SSLVerify,
	}.TokenSource(ctx)
	if err != nil {
		metrics.IncExportFailure("auth")
		logger.Error().
			Err(err).
			Str("event", "auth.failed").
			Msg("could not obtain an access token")
		return exitFailure
	}

	client := panopto.New(cfg.Server, tokens, panopto.Options{
		InsecureTLS: !cfg.SSLVerify,
		UserAgent:   "panopto-export/" + version,
	})

	status, err := export.Export(ctx, export.Config{
		Server:     cfg.Server,
		FolderID:   cfg.FolderID,
		OutputPath: cfg.OutputPath,
		PageSize:   cfg.PageSize,
	}, client)

	var partial *export.PartialError
	switch {
	case errors.As(err, &partial):
		logger.Warn().
			Str("event", "cli.partial").
			Int("recordings", partial.Status.Recordings).
			Str("path", partial.Status.Path).
			Msg("export finished with a partial result")
		return exitPartial
	case err != nil:
		logger.Error().
			Err(err).
			Str("event", "cli.failed").
			Msg("export failed")
		return exitFailure
	}

	logger.Info().
		Str("event", "cli.done").
		Int("recordings", status.Recordings).
		Int("pages", status.Pages).
		Str("path", status.Path).
		Msg("export finished")
	return exitOK
}

// setFlagEnv promotes a non-empty flag value into the environment so the
// loader's ENV > file precedence covers flags too.
func setFlagEnv(key, value string) {
	if value != "" {
		os.Setenv(key, value) //nolint:errcheck
	}
}

// startMetricsListener serves /metrics when an address is configured. The
// returned func shuts the listener down.
func startMetricsListener(addr string, logger zerolog.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().
			Str("event", "metrics.listen").
			Str("addr", addr).
			Msg("metrics listener started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().
				Err(err).
				Str("event", "metrics.listen_failed").
				Msg("metrics listener stopped")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
