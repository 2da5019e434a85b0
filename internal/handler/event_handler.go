package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuschain/credit-ledger-api/internal/repository"
	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
	"github.com/campuschain/credit-ledger-api/pkg/response"
)

// EventHandler serves the mirrored ledger event log.
type EventHandler struct {
	events *repository.EventRepository
}

// NewEventHandler creates a new handler.
func NewEventHandler(events *repository.EventRepository) *EventHandler {
	return &EventHandler{events: events}
}

// List godoc
// @Summary List ledger events
// @Description Returns mirrored ledger events with seq greater than or equal to since
// @Tags Events
// @Produce json
// @Param since query int false "Starting sequence number" default(0)
// @Param limit query int false "Maximum events returned" default(100)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	since := uint64(0)
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgument, "since must be a non-negative integer"))
			return
		}
		since = parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgument, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	rows, err := h.events.ListSince(c.Request.Context(), since, limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events"))
		return
	}

	response.JSON(c, http.StatusOK, rows, nil)
}
