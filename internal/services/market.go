package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"gatekeeper-backend/internal/models"
)

// PoolFloor is the nominal minimum per side used when computing odds, so
// an empty side never divides by zero and early wagers see sane prices.
const PoolFloor = 100.0

// Market runs the two-sided parimutuel book for each session. The losing
// side's stakes fund the winning side's payouts; odds float with the pool
// ratio and are locked per wager at placement.
type Market struct {
	redisService *RedisService
	broadcaster  Broadcaster
}

func NewMarket(redisService *RedisService, broadcaster Broadcaster) *Market {
	return &Market{
		redisService: redisService,
		broadcaster:  broadcaster,
	}
}

// ComputeMultipliers derives both multipliers from raw pool totals. The
// floor is applied to the divisor only after totals are summed, mirroring
// how the pools are seeded on chain.
func ComputeMultipliers(poolFail, poolBreach float64) models.MarketStats {
	flooredFail := math.Max(poolFail, PoolFloor)
	flooredBreach := math.Max(poolBreach, PoolFloor)
	totalPool := flooredFail + flooredBreach

	return models.MarketStats{
		FailMultiplier:   roundMultiplier(totalPool / flooredFail),
		BreachMultiplier: roundMultiplier(totalPool / flooredBreach),
		PoolFail:         poolFail,
		PoolBreach:       poolBreach,
	}
}

func roundMultiplier(m float64) float64 {
	return math.Round(m*100) / 100
}

// CurrentStats snapshots the pending pools for a session and prices both
// sides. Concurrent placements may shift the pools between this read and a
// subsequent write; a wager keeps whatever price it saw here.
func (m *Market) CurrentStats(sessionID string) (*models.MarketStats, error) {
	predictions, err := m.redisService.GetSessionPredictions(sessionID)
	if err != nil {
		return nil, err
	}

	var poolFail, poolBreach float64
	for _, p := range predictions {
		if p.Status != models.PredictionPending {
			continue
		}
		switch p.Side {
		case models.SideFail:
			poolFail += p.Amount
		case models.SideBreach:
			poolBreach += p.Amount
		}
	}

	stats := ComputeMultipliers(poolFail, poolBreach)
	return &stats, nil
}

// PlaceWager validates the bet, locks the current multiplier for the chosen
// side into a new prediction, and persists it. One wager per wallet per
// session, enforced by an atomic reservation.
func (m *Market) PlaceWager(sessionID, walletAddress string, side models.PredictionSide, amount float64) (*models.Prediction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	session, err := m.redisService.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, fmt.Errorf("%w: market is closed", ErrRoundOver)
	}

	stats, err := m.CurrentStats(sessionID)
	if err != nil {
		return nil, err
	}

	lockedMultiplier := stats.FailMultiplier
	if side == models.SideBreach {
		lockedMultiplier = stats.BreachMultiplier
	}

	prediction := &models.Prediction{
		ID:               models.GeneratePredictionID(),
		SessionID:        sessionID,
		WalletAddress:    walletAddress,
		Side:             side,
		Amount:           amount,
		PayoutMultiplier: lockedMultiplier,
		Status:           models.PredictionPending,
		CreatedAt:        time.Now().Unix(),
	}

	reserved, err := m.redisService.ReserveWager(sessionID, walletAddress, prediction.ID)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, fmt.Errorf("%w: wallet already holds a wager for this session", ErrInvalidRequest)
	}

	if err := m.redisService.SavePrediction(prediction); err != nil {
		m.redisService.ReleaseWager(sessionID, walletAddress)
		return nil, err
	}

	if m.broadcaster != nil {
		m.broadcaster.BroadcastMarketEvent(walletAddress, string(side), amount)

		if updated, err := m.CurrentStats(sessionID); err == nil {
			m.broadcaster.BroadcastMarketStats(updated)
		}
	}

	return prediction, nil
}

// Resolve settles every pending wager for the session: the side matching
// the outcome wins amount x locked multiplier, everyone else loses. A
// second invocation is a no-op; the resolve-once marker is claimed
// atomically before any wager is touched.
func (m *Market) Resolve(sessionID string, outcome models.MarketOutcome) error {
	first, err := m.redisService.MarkMarketResolved(sessionID)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("Market for session %s already resolved, skipping", sessionID)
		return nil
	}

	predictions, err := m.redisService.GetSessionPredictions(sessionID)
	if err != nil {
		return err
	}

	winningSide := outcome.WinningSide()

	for _, p := range predictions {
		if p.Status != models.PredictionPending {
			continue
		}

		if p.Side == winningSide {
			p.Status = models.PredictionWon
			p.Payout = p.Amount * p.PayoutMultiplier
		} else {
			p.Status = models.PredictionLost
		}

		if err := m.redisService.UpdatePrediction(p); err != nil {
			log.Printf("Failed to settle prediction %s: %v", p.ID, err)
		}
	}

	if m.broadcaster != nil {
		if stats, err := m.CurrentStats(sessionID); err == nil {
			m.broadcaster.BroadcastMarketStats(stats)
		}
	}

	log.Printf("Market for session %s resolved as %s (%d wagers)", sessionID, outcome, len(predictions))
	return nil
}
