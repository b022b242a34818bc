// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/UniSotonLibrary/libguides-learning-objects/internal/config"
	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/report"
)

// runReport builds the learning-object tables from the newest link-crawler
// report and a previous export's recordings CSV. It never talks to Panopto,
// so missing API credentials are not an error here.
func runReport(args []string) int {
	fs := flag.NewFlagSet("panopto-export report", flag.ExitOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	reportsDir := fs.String("reports-dir", "", "directory for link-crawler reports and the recordings CSV (overrides config)")
	tablesDir := fs.String("tables-dir", "", "directory for the output tables (overrides config)")
	recordings := fs.String("recordings", "", "path to the recordings CSV (defaults to <reports-dir>/panopto_recordings.csv)")
	force := fs.Bool("force", false, "re-download the link-crawler report even when the local copy is current")
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

	setFlagEnv(config.EnvReportsDir, *reportsDir)
	setFlagEnv(config.EnvTablesDir, *tablesDir)
	if *force {
		os.Setenv(config.EnvForceDownload, "true") //nolint:errcheck
	}

	// The report run only needs directories, not API credentials, so the
	// config file is read leniently instead of through the strict loader.
	cfg, err := reportConfig(*configPath)
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
		return exitFailure
	}

	xlog.SetLevel(cfg.LogLevel)

	res, err := report.Run(ctx, report.Config{
		ReportsDir:     cfg.ReportsDir,
		TablesDir:      cfg.TablesDir,
		RecordingsPath: *recordings,
		ForceDownload:  cfg.ForceDownload,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "cli.report_failed").
			Msg("report build failed")
		return exitFailure
	}

	logger.Info().
		Str("event", "cli.report_done").
		Int("classified", len(res.AllLO.Rows)).
		Int("panopto_joined", len(res.Panopto.Rows)).
		Str("tables_dir", cfg.TablesDir).
		Msg("report tables written")
	return exitOK
}

// reportConfig resolves just the report-relevant settings. File values are
// optional; ENV and flags still win.
func reportConfig(configPath string) (config.AppConfig, error) {
	cfg := config.AppConfig{
		LogLevel:   "info",
		ReportsDir: "reports",
		TablesDir:  "tables",
	}
	if configPath != "" {
		fileCfg, err := config.LoadFileConfig(configPath)
		if err != nil {
			return cfg, err
		}
		if fileCfg.LogLevel != nil {
			cfg.LogLevel = *fileCfg.LogLevel
		}
		if fileCfg.ReportsDir != nil {
			cfg.ReportsDir = *fileCfg.ReportsDir
		}
		if fileCfg.TablesDir != nil {
			cfg.TablesDir = *fileCfg.TablesDir
		}
		if fileCfg.ForceDownload != nil {
			cfg.ForceDownload = *fileCfg.ForceDownload
		}
	}
	cfg.LogLevel = config.ParseString(config.EnvLogLevel, cfg.LogLevel)
	cfg.ReportsDir = config.ParseString(config.EnvReportsDir, cfg.ReportsDir)
	cfg.TablesDir = config.ParseString(config.EnvTablesDir, cfg.TablesDir)
	cfg.ForceDownload = config.ParseBool(config.EnvForceDownload, cfg.ForceDownload)
	return cfg, nil
}
