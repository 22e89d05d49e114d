package services

import "gatekeeper-backend/internal/models"

type Broadcaster interface {
	BroadcastFeedEvent(walletAddress, userMessage, aiResponse string)
	BroadcastStats(session *models.GameSession)
	BroadcastMarketEvent(walletAddress, side string, amount float64)
	BroadcastMarketStats(stats *models.MarketStats)
}
