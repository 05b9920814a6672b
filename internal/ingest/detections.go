package ingest

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/trapwatch/internal/datastore"
	"github.com/tphakala/trapwatch/internal/errors"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 500

// ListDetections handles GET /api/v1/cameras/:camera/detections?limit=N.
func (c *Controller) ListDetections(ctx echo.Context) error {
	cameraID := ctx.Param("camera")
	if !validCameraID.MatchString(cameraID) {
		return c.HandleError(ctx, nil, "Invalid camera ID", http.StatusBadRequest)
	}

	limit := datastore.DefaultLatestLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.HandleError(ctx, err, "limit must be a positive integer", http.StatusBadRequest)
		}
		limit = min(n, MaxListLimit)
	}

	rows, err := c.store.Latest(ctx.Request().Context(), cameraID, limit)
	if err != nil {
		c.recorder.RecordStoreError()
		return c.HandleError(ctx, err, "Failed to list detections", http.StatusInternalServerError)
	}
	if rows == nil {
		rows = []datastore.Detection{}
	}
	return ctx.JSON(http.StatusOK, DetectionsResponse{Detections: rows, Count: len(rows)})
}

// GetDetection handles GET /api/v1/detections/:id.
func (c *Controller) GetDetection(ctx echo.Context) error {
	id := ctx.Param("id")
	det, err := c.store.Get(ctx.Request().Context(), id)
	switch {
	case errors.IsNotFound(err):
		return c.HandleError(ctx, err, "Detection not found", http.StatusNotFound)
	case err != nil:
		c.recorder.RecordStoreError()
		return c.HandleError(ctx, err, "Failed to load detection", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, det)
}
