// global.go
package logger

import (
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger *CentralLogger
)

// SetGlobal installs the process-wide central logger.
func SetGlobal(c *CentralLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = c
}

// Global returns the process-wide central logger.
// If none was installed, a console logger with default settings is created.
func Global() *CentralLogger {
	globalMu.RLock()
	c := globalLogger
	globalMu.RUnlock()
	if c != nil {
		return c
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		// NewCentralLogger only fails when a file output is configured
		globalLogger, _ = NewCentralLogger(DefaultConfig())
	}
	return globalLogger
}
