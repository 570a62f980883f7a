package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sendit-labs/sendit-server/internal/service"
	"github.com/sendit-labs/sendit-server/internal/utils"
)

const sweepTimeout = 5 * time.Minute

// CleanupHandler exposes the sweep to external triggers (cron, a scheduler
// hitting POST /api/v1/cleanup). Redundant or overlapping invocations are
// harmless; the sweep re-queries expiry state on every run.
type CleanupHandler struct {
	sweeper *service.Sweeper
	log     logrus.FieldLogger
}

func NewCleanupHandler(sweeper *service.Sweeper, log logrus.FieldLogger) *CleanupHandler {
	return &CleanupHandler{sweeper: sweeper, log: log}
}

// POST /api/v1/cleanup
func (h *CleanupHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), sweepTimeout)
	defer cancel()

	count, err := h.sweeper.Sweep(ctx)
	if err != nil {
		h.log.WithError(err).Error("cleanup trigger failed")
		utils.Error(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}

	message := "Cleanup completed successfully"
	if count == 0 {
		message = "No expired transfers to clean up"
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: message,
		Data:    map[string]any{"count": count},
	})
}
