package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/models"
)

// TextOracle abstracts the provider chain for the orchestrator.
type TextOracle interface {
	Complete(ctx context.Context, systemPrompt string, history []*models.Message, userMessage string) (string, error)
}

// Orchestrator sequences one attempt end to end: gate check, oracle call,
// interpretation, session and ledger mutation, broadcast. No lock is held
// across the oracle round trip; correctness comes from the store's atomic
// conditional updates.
type Orchestrator struct {
	redisService *RedisService
	market       *Market
	oracle       TextOracle
	verifier     PaymentVerifier
	broadcaster  Broadcaster

	defaults        SessionDefaults
	cooldown        time.Duration
	verifyPayments  bool
	prizeSeedPhrase string
}

func NewOrchestrator(
	redisService *RedisService,
	market *Market,
	oracle TextOracle,
	verifier PaymentVerifier,
	broadcaster Broadcaster,
	cfg *config.Config,
) *Orchestrator {
	return &Orchestrator{
		redisService: redisService,
		market:       market,
		oracle:       oracle,
		verifier:     verifier,
		broadcaster:  broadcaster,
		defaults: SessionDefaults{
			InitialJackpot:         cfg.InitialJackpot,
			MinAttemptsBeforeYield: cfg.MinAttemptsBeforeYield,
		},
		cooldown:        cfg.ChatCooldown,
		verifyPayments:  cfg.VerifyPayments,
		prizeSeedPhrase: cfg.PrizeSeedPhrase,
	}
}

func (o *Orchestrator) HandleAttempt(ctx context.Context, walletAddress string, req *models.ChatRequest) (*models.ChatResponse, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: wallet address is required", ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	allowed, err := o.redisService.CheckCooldown(walletAddress, o.cooldown)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	if o.verifyPayments {
		if req.TxSignature == "" {
			return nil, fmt.Errorf("%w: transaction signature is required", ErrPaymentRequired)
		}

		valid, err := o.verifier.Verify(ctx, req.TxSignature, walletAddress)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentRequired, err)
		}
		if !valid {
			return nil, ErrPaymentRequired
		}

		fresh, err := o.redisService.ConsumeTxSignature(req.TxSignature, walletAddress)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return nil, ErrPaymentReplayed
		}
	}

	session, err := o.redisService.GetOrCreateActiveSession(o.defaults)
	if err != nil {
		return nil, err
	}
	if session.Winner != "" || session.Status != models.SessionStatusActive {
		return nil, ErrRoundOver
	}

	newCount, err := o.redisService.IncrementAttempts(session.ID)
	if err != nil {
		// The increment script rejects non-active sessions, catching a
		// round sealed between the guard above and the increment.
		if strings.Contains(err.Error(), "session not active") {
			return nil, ErrRoundOver
		}
		return nil, err
	}

	mode := DecideMode(newCount-1, session.MinAttemptsBeforeYield)

	prompt := systemPrompt
	if mode == models.ModeForcedRejection {
		prompt += forcedModeHint
	} else {
		prompt += yieldModeHint
	}

	history, err := o.redisService.GetConversation(session.ID, walletAddress, HistoryLimit)
	if err != nil {
		log.Printf("Failed to load conversation history: %v", err)
		history = nil
	}

	rawText, err := o.oracle.Complete(ctx, prompt, history, req.Message)
	if err != nil {
		// No judgement was rendered, so the attempt must not count.
		if derr := o.redisService.DecrementAttempts(session.ID); derr != nil {
			log.Printf("Failed to compensate attempt counter: %v", derr)
		}
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	result := InterpretResponse(rawText, mode)

	var seedPhrase string
	if result.IsWin {
		sealErr := o.redisService.SealWithWinner(session.ID, walletAddress)
		switch {
		case sealErr == nil:
			seedPhrase = o.prizeSeedPhrase
			if err := o.market.Resolve(session.ID, models.OutcomeBreached); err != nil {
				log.Printf("Failed to resolve market for session %s: %v", session.ID, err)
			}
			log.Printf("Session %s sealed: winner %s after %d attempts", session.ID, walletAddress, newCount)
		case errors.Is(sealErr, ErrAlreadySealed):
			// Lost the race to a concurrent winner. This was still a real,
			// counted attempt; the caller just sees a normal rejection.
			result = AttemptResult{Content: "The vault stands open already. Someone beat you to it... by a breath."}
		default:
			return nil, sealErr
		}
	}

	now := time.Now().Unix()

	userMsg := &models.Message{
		ID:            models.GenerateMessageID(),
		WalletAddress: walletAddress,
		SessionID:     session.ID,
		Role:          models.RoleUser,
		Content:       req.Message,
		TxSignature:   req.TxSignature,
		CreatedAt:     now,
	}
	if err := o.redisService.SaveMessage(userMsg); err != nil {
		log.Printf("Failed to save user message: %v", err)
	}

	aiMsg := &models.Message{
		ID:            models.GenerateMessageID(),
		WalletAddress: walletAddress,
		SessionID:     session.ID,
		Role:          models.RoleAI,
		Content:       result.Content,
		IsWinner:      result.IsWin,
		CreatedAt:     now,
	}
	if err := o.redisService.SaveMessage(aiMsg); err != nil {
		log.Printf("Failed to save AI message: %v", err)
	}

	updated, err := o.redisService.GetSession(session.ID)
	if err != nil {
		updated = session
	}

	if o.broadcaster != nil {
		o.broadcaster.BroadcastFeedEvent(walletAddress, req.Message, result.Content)
		o.broadcaster.BroadcastStats(updated)
	}

	return &models.ChatResponse{
		Response:   result.Content,
		IsWinner:   result.IsWin,
		Jackpot:    updated.Jackpot,
		SessionID:  updated.ID,
		SeedPhrase: seedPhrase,
	}, nil
}

// ActiveStats returns the counters for the current session, provisioning
// one if needed so a fresh deployment always has something to show.
func (o *Orchestrator) ActiveStats() (*models.GameSession, error) {
	return o.redisService.GetOrCreateActiveSession(o.defaults)
}

// RotateSession completes the current active round without a winner,
// resolves its market as failed, and provisions a replacement. Used by the
// admin surface when a new on-chain game is registered.
func (o *Orchestrator) RotateSession(defaults SessionDefaults) (*models.GameSession, error) {
	current, err := o.redisService.GetActiveSession()
	if err != nil && !errors.Is(err, ErrNoActiveSession) {
		return nil, err
	}

	if current != nil {
		completed, err := o.redisService.CompleteSession(current.ID)
		if err != nil {
			return nil, err
		}
		if completed {
			if err := o.market.Resolve(current.ID, models.OutcomeFailed); err != nil {
				log.Printf("Failed to resolve market for rotated session %s: %v", current.ID, err)
			}
		}
	}

	if defaults.InitialJackpot == 0 {
		defaults.InitialJackpot = o.defaults.InitialJackpot
	}
	if defaults.MinAttemptsBeforeYield == 0 {
		defaults.MinAttemptsBeforeYield = o.defaults.MinAttemptsBeforeYield
	}

	session, err := o.redisService.GetOrCreateActiveSession(defaults)
	if err != nil {
		return nil, err
	}

	if o.broadcaster != nil {
		o.broadcaster.BroadcastStats(session)
	}

	return session, nil
}
