// SPDX-License-Identifier: MIT

// Package export fetches all recordings in a Panopto folder and flattens
// them into a CSV file.
package export

import (
	"context"
	"time"

	"github.com/UniSotonLibrary/libguides-learning-objects/internal/panopto"
)

// SessionLister is the slice of the Panopto client the exporter needs.
type SessionLister interface {
	ListSessions(ctx context.Context, folderID string, page panopto.PageRequest) (*panopto.SessionPage, error)
}

// Config holds configuration for one export run.
type Config struct {
	Server     string // Panopto server base URL, used to derive viewer links
	FolderID   string
	OutputPath string
	PageSize   int // defaults to 100, clamped to [1,100]
}

// StopReason records why the pagination loop ended.
type StopReason string

const (
	// StopExhausted means a page came back with zero results.
	StopExhausted StopReason = "exhausted"
	// StopTotalReached means the accumulated count reached the
	// server-declared total.
	StopTotalReached StopReason = "total_reached"
	// StopError means a page request failed; the accumulation up to that
	// point is a partial result.
	StopError StopReason = "error"
)

// FetchResult is the outcome of paging through a folder. The stop reason is
// part of the result so partial accumulations are explicit rather than
// inferred from loop exit.
type FetchResult struct {
	Sessions []panopto.Session
	Total    int // server-declared TotalNumberOfResults (last seen)
	Pages    int // requests issued
	Reason   StopReason
	Err      error // set only when Reason == StopError
}

// Complete reports whether the fetch covered the whole folder.
func (r FetchResult) Complete() bool {
	return r.Reason == StopExhausted || r.Reason == StopTotalReached
}

// Status describes a finished export run.
type Status struct {
	LastRun    time.Time  `json:"last_run"`
	Recordings int        `json:"recordings"`
	Pages      int        `json:"pages"`
	Reason     StopReason `json:"stop_reason"`
	Partial    bool       `json:"partial"`
	Path       string     `json:"path,omitempty"` // empty when nothing was written
}

// PartialError signals that the export ended with a partial result: the
// fetch aborted mid-folder but the accumulated rows were still written.
// Callers distinguish it from total failure via errors.As.
type PartialError struct {
	Status *Status
	Err    error
}

func (e *PartialError) Error() string {
	return "export: partial result after " + string(e.Status.Reason) + " stop: " + e.Err.Error()
}

func (e *PartialError) Unwrap() error {
	return e.Err
}
