// SPDX-License-Identifier: MIT

package export

import (
	"context"

	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/metrics"
	"github.com/UniSotonLibrary/libguides-learning-objects/internal/panopto"
)

// FetchFolder pages through a folder's sessions in fixed order (page 1, 2,
// ...) until a page comes back empty, the accumulated count reaches the
// server-declared total, or a request fails. A failed request ends the loop
// immediately; whatever was accumulated so far is returned with
// Reason == StopError. Requests are strictly sequential.
func FetchFolder(ctx context.Context, cl SessionLister, folderID string, pageSize int) FetchResult {
	logger := xlog.WithComponentFromContext(ctx, "export")

	var res FetchResult
	for page := 1; ; page++ {
		pg, err := cl.ListSessions(ctx, folderID, panopto.PageRequest{Number: page, Size: pageSize})
		if err != nil {
			logger.Error().
				Err(err).
				Str("event", "sessions.page_failed").
				Str("folder", folderID).
				Int("page", page).
				Int("accumulated", len(res.Sessions)).
				Msg("page request failed, keeping partial accumulation")
			res.Reason = StopError
			res.Err = err
			return res
		}

		res.Pages++
		res.Total = pg.Total
		metrics.IncPageFetched()

		logger.Debug().
			Str("event", "sessions.page").
			Str("folder", folderID).
			Int("page", page).
			Int("results", len(pg.Results)).
			Int("declared_total", pg.Total).
			Msg("page fetched")

		if len(pg.Results) == 0 {
			res.Reason = StopExhausted
			break
		}

		res.Sessions = append(res.Sessions, pg.Results...)

		if len(res.Sessions) >= pg.Total {
			res.Reason = StopTotalReached
			break
		}
	}

	// The server-declared total and the accumulated count can disagree when
	// the listing changes between pages or the server miscounts. Surface the
	// mismatch; never deduplicate or re-sort.
	if res.Reason == StopExhausted && len(res.Sessions) != res.Total {
		logger.Warn().
			Str("event", "sessions.count_mismatch").
			Str("folder", folderID).
			Int("accumulated", len(res.Sessions)).
			Int("declared_total", res.Total).
			Msg("accumulated count differs from server-declared total")
	}

	logger.Info().
		Str("event", "sessions.fetched").
		Str("folder", folderID).
		Int("recordings", len(res.Sessions)).
		Int("pages", res.Pages).
		Str("stop_reason", string(res.Reason)).
		Msg("folder listing complete")

	return res
}
