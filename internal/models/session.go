package models

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// GameSession is the authoritative state of one round. At most one session
// is active at a time; Winner is set at most once, by the atomic seal script.
type GameSession struct {
	ID                     string        `json:"id" redis:"id"`
	Name                   string        `json:"name" redis:"name"`
	Status                 SessionStatus `json:"status" redis:"status"`
	Jackpot                float64       `json:"jackpot" redis:"jackpot"`
	Winner                 string        `json:"winner,omitempty" redis:"winner"`
	TotalAttempts          int64         `json:"total_attempts" redis:"total_attempts"`
	MinAttemptsBeforeYield int64         `json:"min_attempts_before_yield" redis:"min_attempts_before_yield"`
	StartedAt              int64         `json:"started_at" redis:"started_at"`
	EndedAt                int64         `json:"ended_at,omitempty" redis:"ended_at"`
}

// AttemptMode is the gate's verdict for one incoming attempt.
type AttemptMode string

const (
	// ModeForcedRejection overrides any win signal from the text oracle
	// until the session has absorbed its minimum number of attempts.
	ModeForcedRejection AttemptMode = "forced_rejection"
	ModeYieldEligible   AttemptMode = "yield_eligible"
)
