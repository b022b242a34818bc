// SPDX-License-Identifier: MIT

package report

import (
	"context"
	"fmt"
	"path/filepath"

	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
)

const recordingsFile = "panopto_recordings.csv"

// Config holds configuration for one report run.
type Config struct {
	ReportsDir     string // where link-crawler reports and the recordings CSV live
	TablesDir      string // where the output tables go
	RecordingsPath string // defaults to ReportsDir/panopto_recordings.csv
	ForceDownload  bool
	Downloader     *Downloader // defaults to the upstream link-crawler repository
}

// Run obtains the newest link-crawler report, joins it against the exported
// recordings, and writes the three tables.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	logger := xlog.WithComponentFromContext(ctx, "report")

	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "reports"
	}
	if cfg.TablesDir == "" {
		cfg.TablesDir = "tables"
	}
	if cfg.RecordingsPath == "" {
		cfg.RecordingsPath = filepath.Join(cfg.ReportsDir, recordingsFile)
	}
	dl := cfg.Downloader
	if dl == nil {
		dl = NewDownloader(DownloaderOptions{})
	}

	linksPath, downloaded, err := dl.Latest(ctx, cfg.ReportsDir, cfg.ForceDownload)
	if err != nil {
		return nil, fmt.Errorf("obtain link-crawler report: %w", err)
	}

	links, err := ReadTable(linksPath)
	if err != nil {
		return nil, err
	}
	recordings, err := ReadTable(cfg.RecordingsPath)
	if err != nil {
		return nil, err
	}

	res, err := Build(links, recordings)
	if err != nil {
		return nil, err
	}
	if err := WriteTables(ctx, cfg.TablesDir, res); err != nil {
		return nil, err
	}

	logger.Info().
		Str("event", "report.complete").
		Str("links", linksPath).
		Bool("downloaded", downloaded).
		Int("classified", len(res.AllLO.Rows)).
		Int("panopto_joined", len(res.Panopto.Rows)).
		Int("panopto_unmatched", res.Unmatched).
		Msg("report tables built")
	return res, nil
}
