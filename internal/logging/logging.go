// Package logging configures the client's internal diagnostic logger
// using a colorized human handler (lmittmann/tint), since this is an
// interactive CLI client rather than a background daemon emitting JSON
// logs for a log-aggregation pipeline.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// New builds a slog.Logger writing colorized lines to w. verbose raises
// the level to Debug.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})
	return slog.New(h)
}
