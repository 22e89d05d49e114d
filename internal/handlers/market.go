package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gatekeeper-backend/internal/models"
	"gatekeeper-backend/internal/services"
)

type MarketHandler struct {
	market       *services.Market
	redisService *services.RedisService
	verifier     services.PaymentVerifier
	verifyBets   bool
}

func NewMarketHandler(market *services.Market, redisService *services.RedisService, verifier services.PaymentVerifier, verifyBets bool) *MarketHandler {
	return &MarketHandler{
		market:       market,
		redisService: redisService,
		verifier:     verifier,
		verifyBets:   verifyBets,
	}
}

func (h *MarketHandler) PlacePrediction(c *gin.Context) {
	walletAddress := c.GetString("wallet_address")

	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.verifyBets {
		if err := h.verifyPayment(c.Request.Context(), req.TxSignature, walletAddress); err != nil {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
			return
		}
	}

	session, err := h.redisService.GetActiveSession()
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No active game session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	prediction, err := h.market.PlaceWager(session.ID, walletAddress, req.Side, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrRoundOver):
			c.JSON(http.StatusConflict, gin.H{"error": "Market is closed for this session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server Error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"prediction": prediction,
	})
}

func (h *MarketHandler) verifyPayment(ctx context.Context, signature, walletAddress string) error {
	if signature == "" {
		return errors.New("transaction signature is required")
	}

	valid, err := h.verifier.Verify(ctx, signature, walletAddress)
	if err != nil || !valid {
		return errors.New("payment verification failed")
	}

	fresh, err := h.redisService.ConsumeTxSignature(signature, walletAddress)
	if err != nil {
		return errors.New("payment verification failed")
	}
	if !fresh {
		return errors.New("transaction already used")
	}

	return nil
}

func (h *MarketHandler) GetMarketStats(c *gin.Context) {
	session, err := h.redisService.GetActiveSession()
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			// Idle market: flat odds, empty pools.
			c.JSON(http.StatusOK, models.MarketStats{
				FailMultiplier:   1.0,
				BreachMultiplier: 1.0,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.market.CurrentStats(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *MarketHandler) GetUserPredictions(c *gin.Context) {
	walletAddress := c.Param("walletAddress")
	if walletAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet address is required"})
		return
	}

	predictions, err := h.redisService.GetWalletPredictions(walletAddress, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if predictions == nil {
		predictions = []*models.Prediction{}
	}

	c.JSON(http.StatusOK, predictions)
}
