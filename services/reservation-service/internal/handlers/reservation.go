package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/flight-scheduling/services/reservation-service/internal/service"
)

type ReservationHandler struct {
	svc *service.ReservationSvc
}

func NewReservationHandler(svc *service.ReservationSvc) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// POST /v1/reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	var in struct {
		ReservationID    string `json:"reservation_id"`
		StudentID        string `json:"student_id" binding:"required"`
		StudentSlotID    string `json:"student_slot_id" binding:"required"`
		InstructorID     string `json:"instructor_id" binding:"required"`
		InstructorSlotID string `json:"instructor_slot_id" binding:"required"`
		AircraftID       string `json:"aircraft_id" binding:"required"`
		AircraftSlotID   string `json:"aircraft_slot_id" binding:"required"`
		ReservationISO   string `json:"reservation_iso" binding:"required"` // RFC3339
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at, err := time.Parse(time.RFC3339, in.ReservationISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reservation_iso must be RFC3339"})
		return
	}

	state, err := h.svc.Create(c, service.CreateInput{
		ReservationID:    in.ReservationID,
		StudentID:        in.StudentID,
		StudentSlotID:    in.StudentSlotID,
		InstructorID:     in.InstructorID,
		InstructorSlotID: in.InstructorSlotID,
		AircraftID:       in.AircraftID,
		AircraftSlotID:   in.AircraftSlotID,
		ReservationTime:  at.UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, state)
}

// GET /v1/reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	state, err := h.svc.Get(c, c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// POST /v1/reservations/:id/cancel
//
// Only a confirmed reservation actually cancels; anything else is a no-op
// and the current state comes back unchanged.
func (h *ReservationHandler) Cancel(c *gin.Context) {
	state, err := h.svc.Cancel(c, c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}
