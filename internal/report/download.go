// SPDX-License-Identifier: MIT

package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/renameio/v2"

	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
)

const (
	defaultOwner = "ab604"
	defaultRepo  = "link-crawler"

	githubAPIBase = "https://api.github.com"
	githubRawBase = "https://raw.githubusercontent.com"

	downloadTimeout = 30 * time.Second
)

// ErrNoReport means neither GitHub nor the local directory holds a usable
// check-links report.
var ErrNoReport = errors.New("no check-links report available")

var reportNameRe = regexp.MustCompile(`^check-links-report-(\d{4}-\d{2}-\d{2})\.csv$`)

// Downloader fetches the newest link-crawler report from GitHub, keeping a
// dated copy per report so a stale remote never clobbers a newer local one.
type Downloader struct {
	http    *http.Client
	apiBase string
	rawBase string
	owner   string
	repo    string
}

// DownloaderOptions tune a Downloader. Zero values select the upstream
// link-crawler repository and a default HTTP client.
type DownloaderOptions struct {
	HTTPClient *http.Client
	APIBase    string
	RawBase    string
	Owner      string
	Repo       string
}

func NewDownloader(opts DownloaderOptions) *Downloader {
	d := &Downloader{
		http:    opts.HTTPClient,
		apiBase: opts.APIBase,
		rawBase: opts.RawBase,
		owner:   opts.Owner,
		repo:    opts.Repo,
	}
	if d.http == nil {
		d.http = &http.Client{Timeout: downloadTimeout}
	}
	if d.apiBase == "" {
		d.apiBase = githubAPIBase
	}
	if d.rawBase == "" {
		d.rawBase = githubRawBase
	}
	if d.owner == "" {
		d.owner = defaultOwner
	}
	if d.repo == "" {
		d.repo = defaultRepo
	}
	return d
}

// Latest returns the path of the newest report in dir, downloading from
// GitHub first when the remote copy is newer or force is set. When GitHub is
// unreachable the newest local report is returned instead; only when neither
// exists does Latest fail with ErrNoReport.
func (d *Downloader) Latest(ctx context.Context, dir string, force bool) (string, bool, error) {
	logger := xlog.WithComponentFromContext(ctx, "report")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create reports directory %q: %w", dir, err)
	}

	localName, localDate := latestLocal(dir)

	remoteName, remoteDate, err := d.latestRemote(ctx)
	if err != nil {
		if localName == "" {
			return "", false, fmt.Errorf("list remote reports: %w", err)
		}
		logger.Warn().
			Err(err).
			Str("event", "report.remote_unavailable").
			Str("local", localName).
			Msg("GitHub unreachable, using newest local report")
		return filepath.Join(dir, localName), false, nil
	}
	if remoteName == "" {
		if localName == "" {
			return "", false, ErrNoReport
		}
		return filepath.Join(dir, localName), false, nil
	}

	if !force && localName != "" && !remoteDate.After(localDate) {
		logger.Debug().
			Str("event", "report.local_current").
			Str("local", localName).
			Msg("local report is current")
		return filepath.Join(dir, localName), false, nil
	}

	path := filepath.Join(dir, remoteName)
	if err := d.download(ctx, remoteName, path); err != nil {
		if localName == "" {
			return "", false, err
		}
		logger.Warn().
			Err(err).
			Str("event", "report.download_failed").
			Str("local", localName).
			Msg("download failed, using newest local report")
		return filepath.Join(dir, localName), false, nil
	}

	logger.Info().
		Str("event", "report.downloaded").
		Str("report", remoteName).
		Msg("downloaded new report")
	return path, true, nil
}

// latestLocal finds the newest dated report file already on disk.
func latestLocal(dir string) (string, time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", time.Time{}
	}
	var (
		latest     string
		latestDate time.Time
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, ok := reportDate(e.Name())
		if !ok {
			continue
		}
		if latest == "" || date.After(latestDate) {
			latest = e.Name()
			latestDate = date
		}
	}
	return latest, latestDate
}

// latestRemote lists the repository's reports directory via the GitHub
// contents API and picks the newest dated report name.
func (d *Downloader) latestRemote(ctx context.Context) (string, time.Time, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/reports", d.apiBase, d.owner, d.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build contents request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("list repository contents: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("list repository contents: unexpected status %d", resp.StatusCode)
	}

	var files []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&files); err != nil {
		return "", time.Time{}, fmt.Errorf("decode contents listing: %w", err)
	}

	var (
		latest     string
		latestDate time.Time
	)
	for _, f := range files {
		date, ok := reportDate(f.Name)
		if !ok {
			continue
		}
		if latest == "" || date.After(latestDate) {
			latest = f.Name
			latestDate = date
		}
	}
	return latest, latestDate, nil
}

// download fetches one report file over the raw endpoint and writes it
// atomically.
func (d *Downloader) download(ctx context.Context, name, path string) error {
	url := fmt.Sprintf("%s/%s/%s/main/reports/%s", d.rawBase, d.owner, d.repo, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("download %q: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %q: unexpected status %d", name, resp.StatusCode)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer pendingFile.Cleanup() //nolint:errcheck

	if _, err := io.Copy(pendingFile, resp.Body); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return pendingFile.CloseAtomicallyReplace()
}

func reportDate(name string) (time.Time, bool) {
	m := reportNameRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
