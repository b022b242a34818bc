// SPDX-License-Identifier: MIT

// Package config loads exporter configuration with the precedence
// ENV > file > defaults. The YAML file is parsed strictly: unknown keys
// fail the load instead of being silently dropped.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Environment variable keys.
const (
	EnvServer        = "PANOPTO_SERVER"
	EnvClientID      = "PANOPTO_CLIENT_ID"
	EnvClientSecret  = "PANOPTO_CLIENT_SECRET"
	EnvGrantType     = "PANOPTO_GRANT_TYPE"
	EnvRedirectPort  = "PANOPTO_REDIRECT_PORT"
	EnvSSLVerify     = "PANOPTO_SSL_VERIFY"
	EnvFolderID      = "PANOPTO_FOLDER_ID"
	EnvOutput        = "PANOPTO_OUTPUT"
	EnvPageSize      = "PANOPTO_PAGE_SIZE"
	EnvLogLevel      = "PANOPTO_LOG_LEVEL"
	EnvMetricsListen = "PANOPTO_METRICS_LISTEN"
	EnvReportsDir    = "PANOPTO_REPORTS_DIR"
	EnvTablesDir     = "PANOPTO_TABLES_DIR"
	EnvForceDownload = "PANOPTO_FORCE_DOWNLOAD"
)

// Defaults.
const (
	defaultGrantType    = "authorization_code"
	defaultRedirectPort = 9127
	defaultOutput       = "reports/panopto_recordings.csv"
	defaultPageSize     = 100
	defaultLogLevel     = "info"
	defaultReportsDir   = "reports"
	defaultTablesDir    = "tables"
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Server       string
	ClientID     string
	ClientSecret string
	GrantType    string
	RedirectPort int
	SSLVerify    bool

	FolderID   string
	OutputPath string
	PageSize   int

	LogLevel      string
	MetricsListen string // empty disables the metrics listener

	ReportsDir    string
	TablesDir     string
	ForceDownload bool

	Version string
}

// Masked returns the config as log fields with the client secret redacted.
func (c AppConfig) Masked() map[string]any {
	secret := ""
	if c.ClientSecret != "" {
		secret = "***"
	}
	return map[string]any{
		"server":         c.Server,
		"client_id":      c.ClientID,
		"client_secret":  secret,
		"grant_type":     c.GrantType,
		"redirect_port":  c.RedirectPort,
		"ssl_verify":     c.SSLVerify,
		"folder_id":      c.FolderID,
		"output":         c.OutputPath,
		"page_size":      c.PageSize,
		"log_level":      c.LogLevel,
		"metrics_listen": c.MetricsListen,
		"reports_dir":    c.ReportsDir,
		"tables_dir":     c.TablesDir,
	}
}

// Validate checks the resolved configuration before any network use.
func Validate(cfg AppConfig) error {
	if cfg.Server == "" {
		return fmt.Errorf("%s is required", EnvServer)
	}
	u, err := url.Parse(cfg.Server)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", cfg.Server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL %q must use http or https", cfg.Server)
	}
	if u.Host == "" {
		return fmt.Errorf("server URL %q is missing a host", cfg.Server)
	}

	if cfg.ClientID == "" {
		return fmt.Errorf("%s is required", EnvClientID)
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("%s is required", EnvClientSecret)
	}

	switch cfg.GrantType {
	case "authorization_code", "client_credentials":
	default:
		return fmt.Errorf("unsupported grant type %q (want authorization_code or client_credentials)", cfg.GrantType)
	}

	if cfg.RedirectPort < 1 || cfg.RedirectPort > 65535 {
		return fmt.Errorf("redirect port %d out of range", cfg.RedirectPort)
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return fmt.Errorf("page size %d out of range [1,100]", cfg.PageSize)
	}
	if strings.TrimSpace(cfg.FolderID) == "" {
		return fmt.Errorf("%s is required", EnvFolderID)
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return fmt.Errorf("%s must not be empty", EnvOutput)
	}
	return nil
}
