// SPDX-License-Identifier: MIT

package export

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/metrics"
)

const defaultPageSize = 100

// Export fetches every recording in the configured folder and writes the
// CSV artifact. Zero recordings means no file is written and no error is
// returned. A fetch that aborts mid-folder still writes the accumulated
// rows and returns a *PartialError so callers can tell the run apart from
// both full success and total failure.
func Export(ctx context.Context, cfg Config, cl SessionLister) (*Status, error) {
	logger := xlog.WithComponentFromContext(ctx, "export")

	cfg.Server = strings.TrimSpace(cfg.Server)
	if err := validateConfig(cfg); err != nil {
		metrics.IncExportFailure("config")
		return nil, err
	}
	if cfg.PageSize < 1 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}

	start := time.Now()
	logger.Info().
		Str("event", "export.start").
		Str("folder", cfg.FolderID).
		Str("output", cfg.OutputPath).
		Int("page_size", cfg.PageSize).
		Msg("starting export")

	res := FetchFolder(ctx, cl, cfg.FolderID, cfg.PageSize)
	metrics.RecordDeclaredTotal(res.Total)

	status := &Status{
		LastRun:    time.Now(),
		Recordings: len(res.Sessions),
		Pages:      res.Pages,
		Reason:     res.Reason,
		Partial:    !res.Complete(),
	}

	if !res.Complete() && len(res.Sessions) == 0 {
		metrics.IncExportFailure("fetch")
		return nil, fmt.Errorf("fetch folder %q: %w", cfg.FolderID, res.Err)
	}

	if len(res.Sessions) == 0 {
		logger.Info().
			Str("event", "export.empty").
			Str("folder", cfg.FolderID).
			Msg("no recordings in folder, skipping CSV write")
		metrics.RecordSessionsExported(0)
		metrics.ObserveExportDuration(time.Since(start).Seconds())
		return status, nil
	}

	rows := make([]Row, 0, len(res.Sessions))
	for _, s := range res.Sessions {
		rows = append(rows, rowFromSession(cfg.Server, s))
	}

	if err := writeCSV(ctx, cfg.OutputPath, rows); err != nil {
		metrics.IncExportFailure("write_csv")
		return nil, fmt.Errorf("write CSV %q: %w", cfg.OutputPath, err)
	}
	status.Path = cfg.OutputPath

	logger.Info().
		Str("event", "csv.write").
		Str("path", cfg.OutputPath).
		Int("recordings", len(rows)).
		Msg("CSV written")

	metrics.RecordSessionsExported(len(rows))
	metrics.ObserveExportDuration(time.Since(start).Seconds())

	if status.Partial {
		metrics.IncExportPartial()
		logger.Warn().
			Str("event", "export.partial").
			Str("folder", cfg.FolderID).
			Int("recordings", status.Recordings).
			Int("declared_total", res.Total).
			Msg("export ended with a partial result")
		return status, &PartialError{Status: status, Err: res.Err}
	}

	logger.Info().
		Str("event", "export.success").
		Int("recordings", status.Recordings).
		Int("pages", status.Pages).
		Msg("export completed")
	return status, nil
}

func validateConfig(cfg Config) error {
	if cfg.Server == "" {
		return fmt.Errorf("server base URL is empty")
	}
	u, err := url.Parse(cfg.Server)
	if err != nil {
		return fmt.Errorf("invalid server base URL %q: %w", cfg.Server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported server base URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server base URL %q is missing host", cfg.Server)
	}
	if strings.TrimSpace(cfg.FolderID) == "" {
		return fmt.Errorf("folder ID is empty")
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return fmt.Errorf("output path is empty")
	}
	return nil
}
