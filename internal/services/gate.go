package services

import (
	"strings"

	"gatekeeper-backend/internal/models"
)

// WinSentinel is the exact token the oracle must lead with to signal a
// yield. The match is a literal prefix check, never fuzzy.
const WinSentinel = "[[ACCESS_GRANTED]]"

// ForcedRejectionText replaces the oracle's output when a win signal
// arrives while the gate is still forcing rejections.
const ForcedRejectionText = "ACCESS DENIED. SECURITY PROTOCOL 001 [LOCKED]. Try again later."

// FallbackRejectionText covers empty or malformed oracle output.
const FallbackRejectionText = "The vault door doesn't even creak. Try harder."

// AttemptResult is the gate's interpretation of one oracle response.
type AttemptResult struct {
	Content string
	IsWin   bool
}

// DecideMode reports whether the session still forces rejections. Pure
// function of the counters; the caller passes the post-increment attempt
// count so the threshold applies to attempts that came before this one.
func DecideMode(attemptsBefore, minAttemptsBeforeYield int64) models.AttemptMode {
	if attemptsBefore < minAttemptsBeforeYield {
		return models.ModeForcedRejection
	}
	return models.ModeYieldEligible
}

// InterpretResponse scans oracle output for the win sentinel. In forced
// rejection mode a win signal is overridden with a canned rejection; the
// untrusted generator never gets the final say on an early yield.
func InterpretResponse(rawText string, mode models.AttemptMode) AttemptResult {
	text := strings.TrimSpace(rawText)

	if text == "" {
		return AttemptResult{Content: FallbackRejectionText}
	}

	if !strings.HasPrefix(text, WinSentinel) {
		return AttemptResult{Content: text}
	}

	if mode == models.ModeForcedRejection {
		return AttemptResult{Content: ForcedRejectionText}
	}

	content := strings.TrimSpace(strings.TrimPrefix(text, WinSentinel))
	if content == "" {
		content = "ACCESS GRANTED. The vault is yours. I... respect that."
	}

	return AttemptResult{Content: content, IsWin: true}
}
