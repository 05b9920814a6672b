package ingest

import "github.com/tphakala/trapwatch/internal/logger"

// GetLogger returns the ingest logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("ingest")
}
