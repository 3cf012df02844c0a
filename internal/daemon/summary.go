package daemon

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/crate/internal/cleanup"
	"github.com/llehouerou/crate/internal/history"
	"github.com/llehouerou/crate/internal/importer"
)

func importEntries(runID string, sum importer.Summary) []history.Entry {
	entries := make([]history.Entry, 0, len(sum.Results))
	for _, r := range sum.Results {
		entries = append(entries, history.Entry{
			RunID:       runID,
			Pipeline:    history.PipelineImport,
			Artist:      r.Artist,
			Album:       r.Album,
			Outcome:     r.Outcome.String(),
			Reason:      r.Reason,
			Destination: r.Destination,
			Files:       r.Files,
			Bytes:       r.Bytes,
		})
	}
	return entries
}

// cleanupEntries skips albums still waiting for correction, which would
// otherwise add a row on every tick.
func cleanupEntries(runID string, sum cleanup.Summary) []history.Entry {
	var entries []history.Entry
	for _, r := range sum.Results {
		if r.Outcome == cleanup.OutcomeSkipped {
			continue
		}
		entries = append(entries, history.Entry{
			RunID:       runID,
			Pipeline:    history.PipelineCleanup,
			Artist:      r.Artist,
			Album:       r.Album,
			Outcome:     r.Outcome.String(),
			Reason:      r.Reason,
			Destination: r.Destination,
			Files:       r.Files,
			Bytes:       r.Bytes,
		})
	}
	return entries
}

func summaryAttrs(imp importer.Summary, cl cleanup.Summary, elapsed time.Duration) []any {
	return []any{
		slog.Int("imported", imp.Count(importer.OutcomeImported)),
		slog.Int("pending", imp.Count(importer.OutcomePending)),
		slog.Int("general", imp.Count(importer.OutcomeGeneral)),
		slog.Int("rejected", imp.Count(importer.OutcomeRejected)),
		slog.Int("failed", imp.Count(importer.OutcomeFailed)+cl.Count(cleanup.OutcomeFailed)),
		slog.Int("cleaned", cl.Count(cleanup.OutcomeCleaned)),
		slog.Int("waiting", cl.Count(cleanup.OutcomeSkipped)),
		slog.String("moved", humanize.IBytes(uint64(imp.Bytes()+cl.Bytes()))),
		slog.Duration("elapsed", elapsed.Round(time.Millisecond)),
	}
}
