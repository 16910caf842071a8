// Package utils provides small helpers shared by services and handlers.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// slowOperation is the duration above which an operation is logged at warn level
const slowOperation = 10 * time.Second

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func (a *Analyzer) Run() {
//	    defer utils.OperationTimer("risk_metrics", a.log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		logDuration(log, operation, time.Since(start))
	}
}

func logDuration(log zerolog.Logger, operation string, duration time.Duration) {
	if duration > slowOperation {
		log.Warn().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Slow operation detected")
		return
	}

	log.Debug().
		Str("operation", operation).
		Dur("duration_ms", duration).
		Msg("Operation completed")
}
