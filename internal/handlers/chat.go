package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gatekeeper-backend/internal/models"
	"gatekeeper-backend/internal/services"
)

type ChatHandler struct {
	orchestrator *services.Orchestrator
	redisService *services.RedisService
}

func NewChatHandler(orchestrator *services.Orchestrator, redisService *services.RedisService) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		redisService: redisService,
	}
}

func (h *ChatHandler) HandleChat(c *gin.Context) {
	walletAddress := c.GetString("wallet_address")

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.orchestrator.HandleAttempt(c.Request.Context(), walletAddress, &req)
	if err != nil {
		status, payload := mapAttemptError(err)
		c.JSON(status, payload)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func mapAttemptError(err error) (int, gin.H) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, services.ErrPaymentReplayed):
		return http.StatusPaymentRequired, gin.H{"error": "Transaction already used"}
	case errors.Is(err, services.ErrPaymentRequired):
		return http.StatusPaymentRequired, gin.H{"error": "Payment Required: transaction verification failed"}
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests, gin.H{"error": "Slow down. The Gatekeeper needs a moment between visitors."}
	case errors.Is(err, services.ErrRoundOver):
		return http.StatusConflict, gin.H{"error": "Game Over: the jackpot has been claimed", "game_ended": true}
	case errors.Is(err, services.ErrOracleUnavailable):
		return http.StatusServiceUnavailable, gin.H{"error": "AI temporarily unavailable. Your attempt was not counted. Try again!"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "Server Error"}
	}
}

func (h *ChatHandler) GetFeed(c *gin.Context) {
	messages, err := h.redisService.GetFeed(services.FeedLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if messages == nil {
		messages = []*models.Message{}
	}

	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) GetStats(c *gin.Context) {
	session, err := h.orchestrator.ActiveStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     session.ID,
		"name":           session.Name,
		"status":         session.Status,
		"jackpot":        session.Jackpot,
		"total_attempts": session.TotalAttempts,
		"winner":         session.Winner,
	})
}
