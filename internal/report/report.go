// SPDX-License-Identifier: MIT

package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/renameio/v2"

	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/metrics"
)

const (
	summaryFile = "lo_summary_table.csv"
	allFile     = "all_lo_table.csv"
	panoptoFile = "panopto_table.csv"
)

// Table is a CSV file in memory: a header row plus data rows, all columns
// addressed by header name.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named header column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Result holds the three output tables of one report build.
type Result struct {
	Summary   *Table // learning-object counts per type
	AllLO     *Table // every classified link row, with its type appended
	Panopto   *Table // Panopto links joined against the recordings export
	ByType    map[LOType]int
	Unmatched int // Panopto links whose ID had no recording
}

// ReadTable reads a CSV file with a header row.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%q: empty CSV, expected a header row", path)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Build classifies the link rows and produces the three output tables.
// links must carry a URL column; recordings is the exporter's output
// (Name, ID, Folder columns are used). Duplicate URLs are kept in AllLO but
// counted once in the summary; duplicate recording IDs keep the first row.
func Build(links, recordings *Table) (*Result, error) {
	urlCol := links.Column("URL")
	if urlCol < 0 {
		return nil, fmt.Errorf("links table has no URL column (header %v)", links.Header)
	}
	for _, name := range []string{"Name", "ID", "Folder"} {
		if recordings.Column(name) < 0 {
			return nil, fmt.Errorf("recordings table has no %s column (header %v)", name, recordings.Header)
		}
	}

	// First occurrence wins for duplicate recording IDs.
	nameCol := recordings.Column("Name")
	idCol := recordings.Column("ID")
	folderCol := recordings.Column("Folder")
	type recording struct{ name, folder string }
	byID := make(map[string]recording, len(recordings.Rows))
	for _, row := range recordings.Rows {
		if len(row) <= idCol || len(row) <= nameCol || len(row) <= folderCol {
			continue
		}
		id := row[idCol]
		if _, ok := byID[id]; !ok {
			byID[id] = recording{name: row[nameCol], folder: row[folderCol]}
		}
	}

	res := &Result{
		AllLO:   &Table{Header: append(append([]string{}, links.Header...), "lo")},
		Panopto: &Table{Header: append(append([]string{}, links.Header...), "lo", "ID", "Recording", "RecordingFolder")},
		ByType:  make(map[LOType]int),
	}

	seenURL := make(map[string]bool)
	for _, row := range links.Rows {
		if len(row) <= urlCol {
			continue
		}
		url := row[urlCol]
		lo, ok := Classify(url)
		if !ok {
			continue
		}

		res.AllLO.Rows = append(res.AllLO.Rows, append(append([]string{}, row...), string(lo)))
		if !seenURL[url] {
			seenURL[url] = true
			res.ByType[lo]++
		}

		if lo != TypePanopto {
			continue
		}
		id := PanoptoID(url)
		rec, found := byID[id]
		if id == "" || !found {
			res.Unmatched++
			continue
		}
		res.Panopto.Rows = append(res.Panopto.Rows,
			append(append([]string{}, row...), string(lo), id, rec.name, rec.folder))
	}

	res.Summary = summaryTable(res.ByType)

	counts := make(map[string]int, len(res.ByType))
	for lo, n := range res.ByType {
		counts[string(lo)] = n
	}
	metrics.RecordLearningObjects(counts)
	return res, nil
}

// summaryTable renders the per-type counts sorted by type name.
func summaryTable(byType map[LOType]int) *Table {
	types := make([]string, 0, len(byType))
	for lo := range byType {
		types = append(types, string(lo))
	}
	sort.Strings(types)

	t := &Table{Header: []string{"lo", "n"}}
	for _, lo := range types {
		t.Rows = append(t.Rows, []string{lo, strconv.Itoa(byType[LOType(lo)])})
	}
	return t
}

// WriteTables writes the three result tables into dir, creating it if
// needed. Each file is replaced atomically.
func WriteTables(ctx context.Context, dir string, res *Result) error {
	logger := xlog.WithComponentFromContext(ctx, "report")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tables directory %q: %w", dir, err)
	}

	for _, out := range []struct {
		name  string
		table *Table
	}{
		{summaryFile, res.Summary},
		{allFile, res.AllLO},
		{panoptoFile, res.Panopto},
	} {
		path := filepath.Join(dir, out.name)
		if err := writeTable(path, out.table); err != nil {
			return err
		}
		logger.Info().
			Str("event", "report.table_written").
			Str("path", path).
			Int("rows", len(out.table.Rows)).
			Msg("table written")
	}
	return nil
}

func writeTable(path string, t *Table) error {
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending table file: %w", err)
	}
	defer pendingFile.Cleanup() //nolint:errcheck

	w := csv.NewWriter(pendingFile)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("write table header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write table row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush table %q: %w", path, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %q: %w", path, err)
	}
	return nil
}
