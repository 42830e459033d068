package handlers

import (
	"context"
	"net/http"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/models"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/utils"
)

// HealthHandler reports service and database health
type HealthHandler struct {
	serviceName string
	pingDB      func(ctx context.Context) error
}

// NewHealthHandler creates a health handler; pingDB checks the database connection
func NewHealthHandler(serviceName string, pingDB func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, pingDB: pingDB}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDB(r.Context()); err != nil {
		utils.RespondWithJSON(w, http.StatusServiceUnavailable, models.HealthResponse{
			Status:   "unhealthy",
			Service:  h.serviceName,
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.HealthResponse{
		Status:   "healthy",
		Service:  h.serviceName,
		Database: "connected",
	})
}
