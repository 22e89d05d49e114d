package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateSessionID() string {
	return fmt.Sprintf("session_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateMessageID() string {
	return fmt.Sprintf("msg_%s", uuid.New().String())
}

func GeneratePredictionID() string {
	return fmt.Sprintf("pred_%s", uuid.New().String())
}

func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return fmt.Errorf("message is required")
	}
	if len(r.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters", MaxMessageLength)
	}
	return nil
}

func (r *PredictionRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	switch r.Side {
	case SideFail, SideBreach:
	default:
		return fmt.Errorf("invalid prediction side: %s", r.Side)
	}
	return nil
}
