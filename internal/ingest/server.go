package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Run serves HTTP until ctx is done, then shuts the server down gracefully.
func (c *Controller) Run(ctx context.Context) error {
	c.Echo.Server.ReadTimeout = c.settings.ReadTimeout

	errChan := make(chan error, 1)
	go func() {
		c.log.Info("HTTP server started", logger.String("listen", c.settings.Listen))
		if err := c.Echo.Start(c.settings.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return errors.New(err).
			Component("ingest").
			Category(errors.CategoryHTTP).
			Context("listen", c.settings.Listen).
			Build()
	case <-ctx.Done():
	}

	timeout := c.settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.log.Info("Shutting down HTTP server")
	if err := c.Echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).Component("ingest").Category(errors.CategoryHTTP).Build()
	}
	// wait for the serve goroutine
	for range errChan {
	}
	return nil
}
