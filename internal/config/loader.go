// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors AppConfig for YAML. Pointer fields distinguish
// "absent" from "explicit zero value" during the merge.
type FileConfig struct {
	Server       *string `yaml:"server"`
	ClientID     *string `yaml:"client_id"`
	ClientSecret *string `yaml:"client_secret"`
	GrantType    *string `yaml:"grant_type"`
	RedirectPort *int    `yaml:"redirect_port"`
	SSLVerify    *bool   `yaml:"ssl_verify"`

	FolderID   *string `yaml:"folder_id"`
	OutputPath *string `yaml:"output"`
	PageSize   *int    `yaml:"page_size"`

	LogLevel      *string `yaml:"log_level"`
	MetricsListen *string `yaml:"metrics_listen"`

	ReportsDir    *string `yaml:"reports_dir"`
	TablesDir     *string `yaml:"tables_dir"`
	ForceDownload *bool   `yaml:"force_download"`
}

// Loader resolves configuration with the precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the configuration. The file is optional; environment
// variables always win over file values.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func defaults() AppConfig {
	return AppConfig{
		GrantType:    defaultGrantType,
		RedirectPort: defaultRedirectPort,
		SSLVerify:    true,
		OutputPath:   defaultOutput,
		PageSize:     defaultPageSize,
		LogLevel:     defaultLogLevel,
		ReportsDir:   defaultReportsDir,
		TablesDir:    defaultTablesDir,
	}
}

// loadFile parses a YAML config file strictly. Unknown fields fail the
// load so typos never silently fall back to defaults.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format %q (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var fileCfg FileConfig
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, file *FileConfig) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&cfg.Server, file.Server)
	setString(&cfg.ClientID, file.ClientID)
	setString(&cfg.ClientSecret, file.ClientSecret)
	setString(&cfg.GrantType, file.GrantType)
	setInt(&cfg.RedirectPort, file.RedirectPort)
	setBool(&cfg.SSLVerify, file.SSLVerify)
	setString(&cfg.FolderID, file.FolderID)
	setString(&cfg.OutputPath, file.OutputPath)
	setInt(&cfg.PageSize, file.PageSize)
	setString(&cfg.LogLevel, file.LogLevel)
	setString(&cfg.MetricsListen, file.MetricsListen)
	setString(&cfg.ReportsDir, file.ReportsDir)
	setString(&cfg.TablesDir, file.TablesDir)
	setBool(&cfg.ForceDownload, file.ForceDownload)
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.Server = ParseString(EnvServer, cfg.Server)
	cfg.ClientID = ParseString(EnvClientID, cfg.ClientID)
	cfg.ClientSecret = ParseString(EnvClientSecret, cfg.ClientSecret)
	cfg.GrantType = ParseString(EnvGrantType, cfg.GrantType)
	cfg.RedirectPort = ParseInt(EnvRedirectPort, cfg.RedirectPort)
	cfg.SSLVerify = ParseBool(EnvSSLVerify, cfg.SSLVerify)
	cfg.FolderID = ParseString(EnvFolderID, cfg.FolderID)
	cfg.OutputPath = ParseString(EnvOutput, cfg.OutputPath)
	cfg.PageSize = ParseInt(EnvPageSize, cfg.PageSize)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.MetricsListen = ParseString(EnvMetricsListen, cfg.MetricsListen)
	cfg.ReportsDir = ParseString(EnvReportsDir, cfg.ReportsDir)
	cfg.TablesDir = ParseString(EnvTablesDir, cfg.TablesDir)
	cfg.ForceDownload = ParseBool(EnvForceDownload, cfg.ForceDownload)
}
