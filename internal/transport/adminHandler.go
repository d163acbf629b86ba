package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/parkingbooker/pkg/queue"
	"github.com/gin-gonic/gin"
)

// DeadLetters is the read/purge side of the event DLQ.
type DeadLetters interface {
	GetFailedMessages(ctx context.Context, limit int) ([]*queue.FailedMessage, error)
	GetDLQStats(ctx context.Context) (*queue.DLQStats, error)
	PurgeDLQ(ctx context.Context) (int64, error)
}

type WorkerStats interface {
	GetStats() map[string]interface{}
}

// AdminHandler обслуживает операционные эндпоинты; nil зависимости означают, что компонент выключен
type AdminHandler struct {
	dlq    DeadLetters
	worker WorkerStats
}

func NewAdminHandler(dlq DeadLetters, worker WorkerStats) *AdminHandler {
	return &AdminHandler{dlq: dlq, worker: worker}
}

func respondUnavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Success: false,
		Error:   msg,
		Code:    "UNAVAILABLE",
	})
}

func (h *AdminHandler) GetFailedEvents(c *gin.Context) {
	if h.dlq == nil {
		respondUnavailable(c, "event dead-letter queue is not configured")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		respondBadRequest(c, "limit must be between 1 and 500")
		return
	}

	failed, err := h.dlq.GetFailedMessages(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if failed == nil {
		failed = []*queue.FailedMessage{}
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Failed events retrieved",
		Data:    failed,
		Meta:    map[string]interface{}{"count": len(failed)},
	})
}

func (h *AdminHandler) GetDLQStats(c *gin.Context) {
	if h.dlq == nil {
		respondUnavailable(c, "event dead-letter queue is not configured")
		return
	}

	stats, err := h.dlq.GetDLQStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "DLQ stats retrieved", stats)
}

func (h *AdminHandler) PurgeDLQ(c *gin.Context) {
	if h.dlq == nil {
		respondUnavailable(c, "event dead-letter queue is not configured")
		return
	}

	removed, err := h.dlq.PurgeDLQ(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "DLQ purged", gin.H{"removed": removed})
}

func (h *AdminHandler) GetWorkerStats(c *gin.Context) {
	if h.worker == nil {
		respondUnavailable(c, "cleanup worker is disabled")
		return
	}

	respondOK(c, http.StatusOK, "Worker stats retrieved", h.worker.GetStats())
}
