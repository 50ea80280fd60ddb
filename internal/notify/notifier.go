// Package notify reports retention run outcomes to operators. The Pub/Sub
// notifier publishes run summaries to a topic consumed by alerting; the
// log notifier is the explicit fallback when Pub/Sub is not configured.
// Which one is wired is decided once at startup, never lazily.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// LogNotifier reports run outcomes to the structured log only.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// RunCompleted logs a completed retention run.
func (n *LogNotifier) RunCompleted(_ context.Context, result *retention.Result) {
	n.logger.Info().
		Int64("deleted", result.TotalDeleted).
		Int64("archived", result.TotalArchived).
		Int64("storage_freed", result.StorageFreed).
		Int("projects", result.ProjectsProcessed).
		Int("errors", len(result.Errors)).
		Bool("aborted", result.Aborted).
		Int64("duration_ms", result.DurationMs).
		Msg("retention run completed")
}

// RunFailed logs a failed retention run.
func (n *LogNotifier) RunFailed(_ context.Context, err error) {
	n.logger.Error().Err(err).Msg("retention run failed")
}

// Ensure LogNotifier implements the scheduler's notifier.
var _ retention.Notifier = (*LogNotifier)(nil)
