// SPDX-License-Identifier: MIT

package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/UniSotonLibrary/libguides-learning-objects/internal/panopto"
)

func exportConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Server:     "https://demo.hosted.panopto.com",
		FolderID:   "folder-1",
		OutputPath: filepath.Join(t.TempDir(), "recordings.csv"),
		PageSize:   2,
	}
}

func TestExportWritesCSV(t *testing.T) {
	cfg := exportConfig(t)
	cl := &fakeLister{
		total: -1,
		sessions: []panopto.Session{
			{ID: "a1", Name: "First", Duration: 3725, Created: "2024-09-30T10:00:00Z", FolderID: "folder-1", Views: 3, State: "Complete"},
			{ID: "b2", Name: "Second", Duration: 61, Created: "2024-10-01T09:00:00Z", FolderID: "folder-1", Views: 0, State: "Processing"},
		},
	}

	status, err := Export(context.Background(), cfg, cl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if status.Partial || status.Recordings != 2 || status.Path != cfg.OutputPath {
		t.Fatalf("unexpected status: %+v", status)
	}

	got, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "Name,ID,Duration,Created,Folder,Views,Status,URL\n" +
		"First,a1,01:02:05,2024-09-30T10:00:00Z,folder-1,3,Complete,https://demo.hosted.panopto.com/Panopto/Pages/Viewer.aspx?id=a1\n" +
		"Second,b2,00:01:01,2024-10-01T09:00:00Z,folder-1,0,Processing,https://demo.hosted.panopto.com/Panopto/Pages/Viewer.aspx?id=b2\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestExportDeterministic(t *testing.T) {
	cfg := exportConfig(t)
	cl := &fakeLister{total: -1, sessions: makeSessions(7)}

	if _, err := Export(context.Background(), cfg, cl); err != nil {
		t.Fatalf("first export: %v", err)
	}
	first, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read first output: %v", err)
	}

	cl.calls = 0
	if _, err := Export(context.Background(), cfg, cl); err != nil {
		t.Fatalf("second export: %v", err)
	}
	second, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read second output: %v", err)
	}

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Fatalf("re-export is not byte-identical (-first +second):\n%s", diff)
	}
}

func TestExportEmptyFolderWritesNothing(t *testing.T) {
	cfg := exportConfig(t)
	cl := &fakeLister{total: -1}

	status, err := Export(context.Background(), cfg, cl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if status.Recordings != 0 || status.Partial || status.Path != "" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err = %v", err)
	}
}

func TestExportPartialWritesAccumulatedRows(t *testing.T) {
	cfg := exportConfig(t)
	cl := &fakeLister{total: -1, sessions: makeSessions(6), failAt: 2}

	status, err := Export(context.Background(), cfg, cl)
	if err == nil {
		t.Fatal("expected an error for a partial export")
	}

	var perr *PartialError
	if !errors.As(err, &perr) {
		t.Fatalf("want *PartialError, got %T: %v", err, err)
	}
	if !errors.Is(err, panopto.ErrUpstreamError) {
		t.Fatalf("underlying sentinel lost: %v", err)
	}
	if status == nil || !status.Partial || status.Recordings != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	got, rerr := os.ReadFile(cfg.OutputPath)
	if rerr != nil {
		t.Fatalf("read output: %v", rerr)
	}
	// Header plus the two rows from page 1.
	if lines := len(splitLines(string(got))); lines != 3 {
		t.Fatalf("want 3 CSV lines got %d:\n%s", lines, got)
	}
}

func TestExportFetchFailureWithNothingAccumulated(t *testing.T) {
	cfg := exportConfig(t)
	cl := &fakeLister{total: -1, sessions: makeSessions(6), failAt: 1}

	status, err := Export(context.Background(), cfg, cl)
	if err == nil {
		t.Fatal("expected an error")
	}
	var perr *PartialError
	if errors.As(err, &perr) {
		t.Fatalf("an empty accumulation is a plain failure, not partial: %v", err)
	}
	if status != nil {
		t.Fatalf("unexpected status: %+v", status)
	}
	if _, serr := os.Stat(cfg.OutputPath); !os.IsNotExist(serr) {
		t.Fatalf("expected no output file, stat err = %v", serr)
	}
}

func TestExportWriteFailure(t *testing.T) {
	cfg := exportConfig(t)
	cfg.OutputPath = filepath.Join(cfg.OutputPath, "nested", "out.csv") // parent directory does not exist
	cl := &fakeLister{total: -1, sessions: makeSessions(1)}

	if _, err := Export(context.Background(), cfg, cl); err == nil {
		t.Fatal("expected a write error")
	}
}

func TestExportConfigValidation(t *testing.T) {
	cl := &fakeLister{total: -1}
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty server", Config{FolderID: "f", OutputPath: "out.csv"}},
		{"bad scheme", Config{Server: "ftp://x", FolderID: "f", OutputPath: "out.csv"}},
		{"no host", Config{Server: "https://", FolderID: "f", OutputPath: "out.csv"}},
		{"empty folder", Config{Server: "https://x", OutputPath: "out.csv"}},
		{"empty output", Config{Server: "https://x", FolderID: "f"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Export(context.Background(), tc.cfg, cl); err == nil {
				t.Fatal("expected a validation error")
			}
			if cl.calls != 0 {
				t.Fatalf("validation must fail before any request, got %d calls", cl.calls)
			}
		})
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
