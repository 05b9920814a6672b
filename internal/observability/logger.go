package observability

import (
	"fmt"

	"github.com/tphakala/trapwatch/internal/logger"
)

// GetLogger returns the observability logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("metrics")
}

// promLogger forwards promhttp handler errors to the structured logger.
type promLogger struct{}

func (promLogger) Println(v ...any) {
	GetLogger().Error("Metrics handler error", logger.String("error", fmt.Sprint(v...)))
}
