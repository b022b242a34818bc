// SPDX-License-Identifier: MIT

package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/google/renameio/v2"

	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/panopto"
)

// csvHeader is the fixed export schema, in column order.
var csvHeader = []string{"Name", "ID", "Duration", "Created", "Folder", "Views", "Status", "URL"}

// Row is the CSV projection of one session.
type Row struct {
	Name     string
	ID       string
	Duration string // HH:MM:SS
	Created  string
	Folder   string
	Views    string
	Status   string
	URL      string
}

func (r Row) record() []string {
	return []string{r.Name, r.ID, r.Duration, r.Created, r.Folder, r.Views, r.Status, r.URL}
}

// rowFromSession flattens a session into the export schema. Missing fields
// come through as their zero values, which is exactly the defaulting the
// schema wants (empty strings, "0" views, "00:00:00" duration).
func rowFromSession(server string, s panopto.Session) Row {
	return Row{
		Name:     s.Name,
		ID:       s.ID,
		Duration: FormatDuration(float64(s.Duration)),
		Created:  s.Created,
		Folder:   s.FolderID,
		Views:    strconv.Itoa(int(s.Views)),
		Status:   s.State,
		URL:      panopto.ViewerURL(server, s.ID),
	}
}

// FormatDuration renders seconds as zero-padded HH:MM:SS, truncating
// sub-second precision.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// writeCSV writes the header plus one row per session, atomically: the
// target path only ever holds a complete, flushed file.
func writeCSV(ctx context.Context, path string, rows []Row) error {
	logger := xlog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending CSV file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending CSV file")
		}
	}()

	w := csv.NewWriter(pendingFile)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace CSV file: %w", err)
	}

	return nil
}
