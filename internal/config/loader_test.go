// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets every PANOPTO_* key for the duration of the test so
// developer shells cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvServer, EnvClientID, EnvClientSecret, EnvGrantType, EnvRedirectPort,
		EnvSSLVerify, EnvFolderID, EnvOutput, EnvPageSize, EnvLogLevel,
		EnvMetricsListen, EnvReportsDir, EnvTablesDir, EnvForceDownload,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaultsAndFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
server: https://demo.hosted.panopto.com
client_id: my-client
client_secret: my-secret
folder_id: folder-1
`)

	cfg, err := NewLoader(path, "1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "https://demo.hosted.panopto.com", cfg.Server)
	assert.Equal(t, "my-client", cfg.ClientID)
	assert.Equal(t, "folder-1", cfg.FolderID)
	assert.Equal(t, "authorization_code", cfg.GrantType)
	assert.Equal(t, 9127, cfg.RedirectPort)
	assert.True(t, cfg.SSLVerify)
	assert.Equal(t, "reports/panopto_recordings.csv", cfg.OutputPath)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "1.2.3", cfg.Version)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
server: https://file.hosted.panopto.com
client_id: file-client
client_secret: file-secret
folder_id: file-folder
page_size: 50
`)

	t.Setenv(EnvServer, "https://env.hosted.panopto.com")
	t.Setenv(EnvFolderID, "env-folder")
	t.Setenv(EnvPageSize, "25")
	t.Setenv(EnvSSLVerify, "false")
	t.Setenv(EnvGrantType, "client_credentials")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.hosted.panopto.com", cfg.Server)
	assert.Equal(t, "env-folder", cfg.FolderID)
	assert.Equal(t, 25, cfg.PageSize)
	assert.False(t, cfg.SSLVerify)
	assert.Equal(t, "client_credentials", cfg.GrantType)
	// Untouched file values survive.
	assert.Equal(t, "file-client", cfg.ClientID)
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvServer, "https://demo.hosted.panopto.com")
	t.Setenv(EnvClientID, "c")
	t.Setenv(EnvClientSecret, "s")
	t.Setenv(EnvFolderID, "f")

	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, "f", cfg.FolderID)
}

func TestLoadStrictYAMLRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
server: https://demo.hosted.panopto.com
clientid: typo
`)

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoadRejectsNonYAMLExtension(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "")
	t.Setenv(EnvServer, "https://demo.hosted.panopto.com")
	t.Setenv(EnvClientID, "c")
	t.Setenv(EnvClientSecret, "s")
	t.Setenv(EnvFolderID, "f")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.PageSize)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		cfg := defaults()
		cfg.Server = "https://demo.hosted.panopto.com"
		cfg.ClientID = "c"
		cfg.ClientSecret = "s"
		cfg.FolderID = "f"
		return cfg
	}

	require.NoError(t, Validate(base()))

	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing server", func(c *AppConfig) { c.Server = "" }},
		{"bad scheme", func(c *AppConfig) { c.Server = "ftp://x" }},
		{"missing host", func(c *AppConfig) { c.Server = "https://" }},
		{"missing client id", func(c *AppConfig) { c.ClientID = "" }},
		{"missing client secret", func(c *AppConfig) { c.ClientSecret = "" }},
		{"bad grant type", func(c *AppConfig) { c.GrantType = "password" }},
		{"port out of range", func(c *AppConfig) { c.RedirectPort = 0 }},
		{"page size too small", func(c *AppConfig) { c.PageSize = 0 }},
		{"page size too large", func(c *AppConfig) { c.PageSize = 101 }},
		{"missing folder", func(c *AppConfig) { c.FolderID = "  " }},
		{"missing output", func(c *AppConfig) { c.OutputPath = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestMaskedRedactsSecret(t *testing.T) {
	cfg := defaults()
	cfg.ClientSecret = "super-secret"

	fields := cfg.Masked()
	assert.Equal(t, "***", fields["client_secret"])

	cfg.ClientSecret = ""
	assert.Equal(t, "", cfg.Masked()["client_secret"])
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("PANOPTO_TEST_STR", "value")
	assert.Equal(t, "value", ParseString("PANOPTO_TEST_STR", "d"))
	assert.Equal(t, "d", ParseString("PANOPTO_TEST_STR_MISSING", "d"))

	t.Setenv("PANOPTO_TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("PANOPTO_TEST_INT", 1))
	t.Setenv("PANOPTO_TEST_INT", "nope")
	assert.Equal(t, 1, ParseInt("PANOPTO_TEST_INT", 1))

	t.Setenv("PANOPTO_TEST_BOOL", "true")
	assert.True(t, ParseBool("PANOPTO_TEST_BOOL", false))
	t.Setenv("PANOPTO_TEST_BOOL", "garbage")
	assert.False(t, ParseBool("PANOPTO_TEST_BOOL", false))
}
