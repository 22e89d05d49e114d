package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"gatekeeper-backend/internal/models"
	"gatekeeper-backend/internal/services"
)

type AdminHandler struct {
	orchestrator *services.Orchestrator
	adminSecret  string
}

func NewAdminHandler(orchestrator *services.Orchestrator, adminSecret string) *AdminHandler {
	return &AdminHandler{
		orchestrator: orchestrator,
		adminSecret:  adminSecret,
	}
}

// RegisterGame completes the current round without a winner and provisions
// a fresh one. Authorization runs before any state is touched.
func (h *AdminHandler) RegisterGame(c *gin.Context) {
	var req models.RegisterGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if h.adminSecret == "" ||
		subtle.ConstantTimeCompare([]byte(req.AdminSecret), []byte(h.adminSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	session, err := h.orchestrator.RotateSession(services.SessionDefaults{
		Name:                   req.Name,
		InitialJackpot:         req.InitialJackpot,
		MinAttemptsBeforeYield: req.MinAttempts,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Game registered successfully",
		"session_id": session.ID,
		"name":       session.Name,
	})
}
