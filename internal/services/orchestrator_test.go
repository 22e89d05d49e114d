package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/models"
	"gatekeeper-backend/internal/services"
)

type fakeOracle struct {
	text  string
	err   error
	calls int
}

func (f *fakeOracle) Complete(ctx context.Context, systemPrompt string, history []*models.Message, userMessage string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeVerifier struct {
	valid bool
}

func (f *fakeVerifier) Verify(ctx context.Context, signature, walletAddress string) (bool, error) {
	return f.valid, nil
}

func newTestOrchestrator(t *testing.T, redisService *services.RedisService, oracle *fakeOracle, cfg *config.Config) (*services.Orchestrator, *services.Market) {
	t.Helper()

	market := services.NewMarket(redisService, nil)
	orchestrator := services.NewOrchestrator(redisService, market, oracle, &fakeVerifier{valid: true}, nil, cfg)
	return orchestrator, market
}

func cleanupActive(redisService *services.RedisService) {
	if session, err := redisService.GetActiveSession(); err == nil {
		cleanupSession(redisService, session.ID)
	}
	redisService.DeleteActivePointer()
}

func TestOrchestratorWinFlow(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	oracle := &fakeOracle{text: services.WinSentinel + " The vault is yours."}
	cfg := &config.Config{
		InitialJackpot:         500,
		MinAttemptsBeforeYield: 0,
		PrizeSeedPhrase:        "alert rough heavy update hotel bright casual recall",
	}
	orchestrator, market := newTestOrchestrator(t, redisService, oracle, cfg)

	// Seed the market so the win resolves real wagers.
	session, err := redisService.GetOrCreateActiveSession(services.SessionDefaults{
		InitialJackpot:         500,
		MinAttemptsBeforeYield: 0,
	})
	if err != nil {
		t.Fatalf("Failed to provision session: %v", err)
	}
	defer cleanupSession(redisService, session.ID)

	breachBet, err := market.PlaceWager(session.ID, "wallet_bettor", models.SideBreach, 200)
	if err != nil {
		t.Fatalf("Failed to place wager: %v", err)
	}
	defer redisService.DeletePrediction(breachBet.ID)

	resp, err := orchestrator.HandleAttempt(context.Background(), "wallet_challenger", &models.ChatRequest{
		Message: "A riddle so good you have no choice.",
	})
	if err != nil {
		t.Fatalf("HandleAttempt failed: %v", err)
	}

	if !resp.IsWinner {
		t.Error("sentinel response past the threshold should win")
	}
	if resp.SeedPhrase != cfg.PrizeSeedPhrase {
		t.Error("winner should receive the prize seed phrase")
	}

	sealed, err := redisService.GetSession(session.ID)
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if sealed.Status != models.SessionStatusCompleted || sealed.Winner != "wallet_challenger" {
		t.Errorf("session should be sealed for the challenger, got status=%s winner=%s",
			sealed.Status, sealed.Winner)
	}

	settled, err := redisService.GetPrediction(breachBet.ID)
	if err != nil {
		t.Fatalf("Failed to reload wager: %v", err)
	}
	if settled.Status != models.PredictionWon {
		t.Errorf("breach wager should have won on a breach outcome, got %s", settled.Status)
	}
}

func TestOrchestratorForcedRejection(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	oracle := &fakeOracle{text: services.WinSentinel + " Fine, you win."}
	cfg := &config.Config{MinAttemptsBeforeYield: 5}
	orchestrator, _ := newTestOrchestrator(t, redisService, oracle, cfg)

	resp, err := orchestrator.HandleAttempt(context.Background(), "wallet_early", &models.ChatRequest{
		Message: "Please open.",
	})
	if err != nil {
		t.Fatalf("HandleAttempt failed: %v", err)
	}

	if resp.IsWinner {
		t.Error("win signal below the attempt threshold must be overridden")
	}
	if resp.Response != services.ForcedRejectionText {
		t.Errorf("expected canned rejection, got %q", resp.Response)
	}

	session, err := redisService.GetActiveSession()
	if err != nil {
		t.Fatalf("session should still be active: %v", err)
	}
	if session.TotalAttempts != 1 {
		t.Errorf("the overridden attempt still counts, got %d", session.TotalAttempts)
	}
	if session.Winner != "" {
		t.Error("no winner should be recorded in forced rejection mode")
	}
}

func TestOrchestratorOracleFailureCompensation(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	oracle := &fakeOracle{err: errors.New("provider down")}
	cfg := &config.Config{MinAttemptsBeforeYield: 5}
	orchestrator, _ := newTestOrchestrator(t, redisService, oracle, cfg)

	_, err := orchestrator.HandleAttempt(context.Background(), "wallet_unlucky", &models.ChatRequest{
		Message: "Anyone home?",
	})
	if !errors.Is(err, services.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}

	session, err := redisService.GetActiveSession()
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if session.TotalAttempts != 0 {
		t.Errorf("an unjudged attempt must not count, got %d attempts", session.TotalAttempts)
	}
}

func TestOrchestratorRoundOver(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	oracle := &fakeOracle{text: "No."}
	cfg := &config.Config{MinAttemptsBeforeYield: 5}
	orchestrator, _ := newTestOrchestrator(t, redisService, oracle, cfg)

	session, err := redisService.GetOrCreateActiveSession(services.SessionDefaults{
		MinAttemptsBeforeYield: 5,
	})
	if err != nil {
		t.Fatalf("Failed to provision session: %v", err)
	}
	defer cleanupSession(redisService, session.ID)

	if err := redisService.SealWithWinner(session.ID, "wallet_winner"); err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}

	// The active pointer is gone, so a new session gets provisioned and the
	// attempt proceeds against it rather than the sealed round.
	resp, err := orchestrator.HandleAttempt(context.Background(), "wallet_late", &models.ChatRequest{
		Message: "Too late?",
	})
	if err != nil {
		t.Fatalf("attempt against a fresh round should succeed: %v", err)
	}
	if resp.SessionID == session.ID {
		t.Error("attempt should land on a fresh session, not the sealed one")
	}
	if oracle.calls != 1 {
		t.Errorf("oracle should have been consulted once, got %d", oracle.calls)
	}
}

func TestOrchestratorValidation(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	oracle := &fakeOracle{text: "No."}
	cfg := &config.Config{MinAttemptsBeforeYield: 5}
	orchestrator, _ := newTestOrchestrator(t, redisService, oracle, cfg)

	if _, err := orchestrator.HandleAttempt(context.Background(), "", &models.ChatRequest{Message: "hi"}); !errors.Is(err, services.ErrInvalidRequest) {
		t.Errorf("missing wallet should be invalid, got %v", err)
	}

	if _, err := orchestrator.HandleAttempt(context.Background(), "wallet_x", &models.ChatRequest{}); !errors.Is(err, services.ErrInvalidRequest) {
		t.Errorf("missing message should be invalid, got %v", err)
	}

	if oracle.calls != 0 {
		t.Error("validation failures must not reach the oracle")
	}
}

func TestOrchestratorCooldown(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	wallet := fmt.Sprintf("wallet_cd_%d", time.Now().UnixNano())
	defer redisService.ClearCooldown(wallet)

	oracle := &fakeOracle{text: "No."}
	cfg := &config.Config{
		MinAttemptsBeforeYield: 5,
		ChatCooldown:           time.Minute,
	}
	orchestrator, _ := newTestOrchestrator(t, redisService, oracle, cfg)

	if _, err := orchestrator.HandleAttempt(context.Background(), wallet, &models.ChatRequest{Message: "one"}); err != nil {
		t.Fatalf("first attempt should pass: %v", err)
	}

	_, err := orchestrator.HandleAttempt(context.Background(), wallet, &models.ChatRequest{Message: "two"})
	if !errors.Is(err, services.ErrRateLimited) {
		t.Errorf("second attempt inside the cooldown should be limited, got %v", err)
	}
}

func TestOrchestratorPaymentReplay(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	oracle := &fakeOracle{text: "No."}
	cfg := &config.Config{
		MinAttemptsBeforeYield: 5,
		VerifyPayments:         true,
	}
	orchestrator, _ := newTestOrchestrator(t, redisService, oracle, cfg)

	signature := fmt.Sprintf("sig_%d", time.Now().UnixNano())

	if _, err := orchestrator.HandleAttempt(context.Background(), "wallet_payer", &models.ChatRequest{
		Message:     "first",
		TxSignature: signature,
	}); err != nil {
		t.Fatalf("first use of the signature should pass: %v", err)
	}

	_, err := orchestrator.HandleAttempt(context.Background(), "wallet_payer", &models.ChatRequest{
		Message:     "second",
		TxSignature: signature,
	})
	if !errors.Is(err, services.ErrPaymentReplayed) {
		t.Errorf("reused signature should be rejected as a replay, got %v", err)
	}

	if _, err := orchestrator.HandleAttempt(context.Background(), "wallet_payer", &models.ChatRequest{
		Message: "third",
	}); !errors.Is(err, services.ErrPaymentRequired) {
		t.Errorf("missing signature should require payment, got %v", err)
	}
}

func TestOrchestratorRotateSession(t *testing.T) {
	redisService := setupTestRedis(t)
	defer redisService.Close()
	defer cleanupActive(redisService)

	oracle := &fakeOracle{text: "No."}
	cfg := &config.Config{InitialJackpot: 100, MinAttemptsBeforeYield: 5}
	orchestrator, market := newTestOrchestrator(t, redisService, oracle, cfg)

	old, err := redisService.GetOrCreateActiveSession(services.SessionDefaults{
		InitialJackpot:         100,
		MinAttemptsBeforeYield: 5,
	})
	if err != nil {
		t.Fatalf("Failed to provision session: %v", err)
	}
	defer cleanupSession(redisService, old.ID)

	failBet, err := market.PlaceWager(old.ID, "wallet_fail_bettor", models.SideFail, 50)
	if err != nil {
		t.Fatalf("Failed to place wager: %v", err)
	}
	defer redisService.DeletePrediction(failBet.ID)

	fresh, err := orchestrator.RotateSession(services.SessionDefaults{Name: "ROUND TWO"})
	if err != nil {
		t.Fatalf("RotateSession failed: %v", err)
	}

	if fresh.ID == old.ID {
		t.Error("rotation should produce a new session")
	}
	if fresh.Name != "ROUND TWO" {
		t.Errorf("new session should carry the requested name, got %q", fresh.Name)
	}

	rotated, err := redisService.GetSession(old.ID)
	if err != nil {
		t.Fatalf("Failed to reload old session: %v", err)
	}
	if rotated.Status != models.SessionStatusCompleted {
		t.Error("rotated-out session should be completed")
	}
	if rotated.Winner != "" {
		t.Error("rotated-out session must not carry a winner")
	}

	// A round ended without a breach resolves as failed.
	settled, err := redisService.GetPrediction(failBet.ID)
	if err != nil {
		t.Fatalf("Failed to reload wager: %v", err)
	}
	if settled.Status != models.PredictionWon {
		t.Errorf("fail wager should win when the round ends unbreached, got %s", settled.Status)
	}
}
