package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/flight-scheduling/services/timeslot-service/internal/domain"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/projection"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/service"
)

type TimeSlotHandler struct {
	svc  *service.TimeSlotSvc
	proj *projection.Projector
}

func NewTimeSlotHandler(svc *service.TimeSlotSvc, proj *projection.Projector) *TimeSlotHandler {
	return &TimeSlotHandler{svc: svc, proj: proj}
}

// PUT /v1/slots/:id/availability
func (h *TimeSlotHandler) MakeAvailable(c *gin.Context) {
	var in struct {
		ParticipantID   string `json:"participant_id" binding:"required"`
		ParticipantType string `json:"participant_type" binding:"required"`
		StartISO        string `json:"start_iso" binding:"required"` // RFC3339
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ptype, err := domain.ParseParticipantType(in.ParticipantType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, in.StartISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_iso must be RFC3339"})
		return
	}

	state, err := h.svc.MakeAvailable(c, c.Param("id"), in.ParticipantID, ptype, start.UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// DELETE /v1/slots/:id/availability
func (h *TimeSlotHandler) MakeUnavailable(c *gin.Context) {
	if err := h.svc.MakeUnavailable(c, c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /v1/slots/:id
func (h *TimeSlotHandler) Get(c *gin.Context) {
	state, err := h.svc.Get(c, c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "slot not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// GET /v1/participants/:id/slots?status=available
func (h *TimeSlotHandler) SlotsByParticipant(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "available", "unavailable", "scheduled":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be available, unavailable or scheduled"})
		return
	}
	slots, err := h.proj.ByParticipantAndStatus(c, c.Param("id"), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "total": len(slots)})
}
