// SPDX-License-Identifier: MIT

package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UniSotonLibrary/libguides-learning-objects/internal/auth"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/panopto"
)

// TestExportAgainstMockServer drives the whole stack: client-credentials
// token acquisition, authenticated paging, CSV write.
func TestExportAgainstMockServer(t *testing.T) {
	srv := panopto.NewMockServer()
	defer srv.Close()
	srv.SetFolder("folder-1", makeSessions(5))

	tokens, err := auth.Config{
		Server:       srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		GrantType:    auth.GrantClientCredentials,
	}.TokenSource(context.Background())
	if err != nil {
		t.Fatalf("token source: %v", err)
	}

	client := panopto.New(srv.URL, tokens, panopto.Options{})
	cfg := Config{
		Server:     srv.URL,
		FolderID:   "folder-1",
		OutputPath: filepath.Join(t.TempDir(), "recordings.csv"),
		PageSize:   2,
	}

	status, err := Export(context.Background(), cfg, client)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if status.Recordings != 5 || status.Partial {
		t.Fatalf("unexpected status: %+v", status)
	}

	// ceil(5/2) = 3 sessions pages, each carrying the mock bearer.
	if got := srv.Requests(); got != 3 {
		t.Fatalf("want 3 sessions requests got %d", got)
	}
	for _, bearer := range srv.Bearers() {
		if bearer != "Bearer "+srv.AccessToken() {
			t.Fatalf("unexpected Authorization header %q", bearer)
		}
	}

	body, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("want header plus 5 rows got %d lines", len(lines))
	}
	if lines[0] != "Name,ID,Duration,Created,Folder,Views,Status,URL" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
}

// TestExportAgainstMockServerMidFolderFailure checks the partial path over
// a real HTTP round trip.
func TestExportAgainstMockServerMidFolderFailure(t *testing.T) {
	srv := panopto.NewMockServer()
	defer srv.Close()
	srv.SetFolder("folder-1", makeSessions(6))
	srv.FailRequest(2, 503)

	tokens, err := auth.Config{
		Server:       srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		GrantType:    auth.GrantClientCredentials,
	}.TokenSource(context.Background())
	if err != nil {
		t.Fatalf("token source: %v", err)
	}

	client := panopto.New(srv.URL, tokens, panopto.Options{})
	cfg := Config{
		Server:     srv.URL,
		FolderID:   "folder-1",
		OutputPath: filepath.Join(t.TempDir(), "recordings.csv"),
		PageSize:   2,
	}

	status, err := Export(context.Background(), cfg, client)
	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("want *PartialError, got %T: %v", err, err)
	}
	if !errors.Is(err, panopto.ErrUpstreamError) {
		t.Fatalf("sentinel lost: %v", err)
	}
	if status.Recordings != 2 {
		t.Fatalf("want the 2 rows from page 1, got %d", status.Recordings)
	}
	if _, err := os.Stat(cfg.OutputPath); err != nil {
		t.Fatalf("partial rows were not written: %v", err)
	}
}
