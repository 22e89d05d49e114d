package models

type PredictionSide string

const (
	// SideFail bets that the challenger walks away empty-handed.
	SideFail PredictionSide = "fail"
	// SideBreach bets that the vault gets cracked this session.
	SideBreach PredictionSide = "breach"
)

type PredictionStatus string

const (
	PredictionPending PredictionStatus = "pending"
	PredictionWon     PredictionStatus = "won"
	PredictionLost    PredictionStatus = "lost"
)

type MarketOutcome string

const (
	OutcomeBreached MarketOutcome = "breached"
	OutcomeFailed   MarketOutcome = "failed"
)

// Prediction is a single parimutuel wager. PayoutMultiplier is snapshotted
// at placement time and never recomputed; Payout is written once at
// resolution.
type Prediction struct {
	ID               string           `json:"id" redis:"id"`
	SessionID        string           `json:"session_id" redis:"session_id"`
	WalletAddress    string           `json:"wallet_address" redis:"wallet_address"`
	Side             PredictionSide   `json:"side" redis:"side"`
	Amount           float64          `json:"amount" redis:"amount"`
	PayoutMultiplier float64          `json:"payout_multiplier" redis:"payout_multiplier"`
	Status           PredictionStatus `json:"status" redis:"status"`
	Payout           float64          `json:"payout,omitempty" redis:"payout"`
	CreatedAt        int64            `json:"created_at" redis:"created_at"`
}

// MarketStats is the live view of the two pools and their multipliers.
type MarketStats struct {
	FailMultiplier   float64 `json:"fail_multiplier"`
	BreachMultiplier float64 `json:"breach_multiplier"`
	PoolFail         float64 `json:"pool_fail"`
	PoolBreach       float64 `json:"pool_breach"`
}

// WinningSide maps a market outcome to the side that gets paid.
func (o MarketOutcome) WinningSide() PredictionSide {
	if o == OutcomeBreached {
		return SideBreach
	}
	return SideFail
}
