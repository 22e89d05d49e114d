package services

import "errors"

// Error taxonomy for the attempt pipeline. Handlers map these onto HTTP
// statuses; everything else surfaces as a 500.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrPaymentRequired   = errors.New("payment verification failed")
	ErrPaymentReplayed   = errors.New("transaction signature already used")
	ErrRateLimited       = errors.New("cooldown window violated")
	ErrRoundOver         = errors.New("round already decided")
	ErrAlreadySealed     = errors.New("session already sealed by another winner")
	ErrOracleUnavailable = errors.New("all text providers failed")
	ErrNoActiveSession   = errors.New("no active game session")
)
