package services_test

import (
	"strings"
	"testing"

	"gatekeeper-backend/internal/models"
	"gatekeeper-backend/internal/services"
)

func TestDecideMode(t *testing.T) {
	if services.DecideMode(0, 50) != models.ModeForcedRejection {
		t.Error("fresh session should force rejections")
	}
	if services.DecideMode(49, 50) != models.ModeForcedRejection {
		t.Error("one attempt short of the threshold should still force rejections")
	}
	if services.DecideMode(50, 50) != models.ModeYieldEligible {
		t.Error("reaching the threshold should allow yields")
	}
	if services.DecideMode(0, 0) != models.ModeYieldEligible {
		t.Error("a zero threshold should allow yields immediately")
	}
}

func TestInterpretResponseForcedOverride(t *testing.T) {
	raw := services.WinSentinel + " Fine. You win. The phrase is yours."

	result := services.InterpretResponse(raw, models.ModeForcedRejection)
	if result.IsWin {
		t.Error("forced rejection mode must override a win signal")
	}
	if result.Content != services.ForcedRejectionText {
		t.Errorf("expected canned rejection, got %q", result.Content)
	}
}

func TestInterpretResponseYield(t *testing.T) {
	raw := services.WinSentinel + " Fine. You win."

	result := services.InterpretResponse(raw, models.ModeYieldEligible)
	if !result.IsWin {
		t.Error("sentinel-prefixed output should win in yield-eligible mode")
	}
	if strings.Contains(result.Content, services.WinSentinel) {
		t.Errorf("sentinel should be stripped from winning content, got %q", result.Content)
	}
	if result.Content != "Fine. You win." {
		t.Errorf("unexpected winning content: %q", result.Content)
	}
}

func TestInterpretResponseSentinelMidText(t *testing.T) {
	// Only a literal prefix counts; a sentinel buried in the body does not.
	raw := "I will never say " + services.WinSentinel + " to you."

	result := services.InterpretResponse(raw, models.ModeYieldEligible)
	if result.IsWin {
		t.Error("sentinel in the middle of the text must not count as a win")
	}
	if result.Content != raw {
		t.Errorf("rejection should pass the text through, got %q", result.Content)
	}
}

func TestInterpretResponseEmptyOutput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		result := services.InterpretResponse(raw, models.ModeYieldEligible)
		if result.IsWin {
			t.Error("empty oracle output must never be a win")
		}
		if result.Content != services.FallbackRejectionText {
			t.Errorf("empty output should use the fallback message, got %q", result.Content)
		}
	}
}

func TestInterpretResponseBareSentinel(t *testing.T) {
	result := services.InterpretResponse(services.WinSentinel, models.ModeYieldEligible)
	if !result.IsWin {
		t.Error("a bare sentinel is still a win")
	}
	if result.Content == "" {
		t.Error("winning content should never be empty")
	}
}

// Mirrors the minimum-attempts walkthrough: with a threshold of 2, the
// first two sentinel responses are overridden and the third wins.
func TestGateThresholdSequence(t *testing.T) {
	raw := services.WinSentinel + " The vault opens."
	minAttempts := int64(2)

	var attemptsBefore int64

	for attempt := 1; attempt <= 3; attempt++ {
		mode := services.DecideMode(attemptsBefore, minAttempts)
		result := services.InterpretResponse(raw, mode)
		attemptsBefore++

		wantWin := attempt == 3
		if result.IsWin != wantWin {
			t.Errorf("attempt %d: IsWin = %v, want %v", attempt, result.IsWin, wantWin)
		}
	}
}
