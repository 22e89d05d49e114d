package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// PaymentVerifier confirms that a claimed payment proof is real, confirmed,
// and attributable to the claimed wallet.
type PaymentVerifier interface {
	Verify(ctx context.Context, signature, walletAddress string) (bool, error)
}

const (
	lamportsPerSOL = 1_000_000_000

	verifyRetries = 3
	verifyBackoff = 2 * time.Second
)

// SolanaVerifier checks a transaction signature against the cluster RPC:
// the claimed wallet must have signed, and the transaction must carry a
// system transfer of at least the attempt price to the treasury. Retries a
// bounded number of times with fixed backoff, then fails closed.
type SolanaVerifier struct {
	rpcURL         string
	treasuryWallet string
	priceSOL       float64
	httpClient     *http.Client
}

func NewSolanaVerifier(network, treasuryWallet string, priceSOL float64) *SolanaVerifier {
	return &SolanaVerifier{
		rpcURL:         fmt.Sprintf("https://api.%s.solana.com", network),
		treasuryWallet: treasuryWallet,
		priceSOL:       priceSOL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type parsedTransaction struct {
	Result *struct {
		Transaction struct {
			Message struct {
				AccountKeys []struct {
					Pubkey string `json:"pubkey"`
					Signer bool   `json:"signer"`
				} `json:"accountKeys"`
				Instructions []struct {
					Program string `json:"program"`
					Parsed  *struct {
						Type string `json:"type"`
						Info struct {
							Source      string `json:"source"`
							Destination string `json:"destination"`
							Lamports    uint64 `json:"lamports"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"instructions"`
			} `json:"message"`
		} `json:"transaction"`
	} `json:"result"`
}

func (v *SolanaVerifier) Verify(ctx context.Context, signature, walletAddress string) (bool, error) {
	if signature == "" {
		return false, nil
	}

	var lastErr error
	for attempt := 0; attempt < verifyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(verifyBackoff):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}

		valid, err := v.verifyOnce(ctx, signature, walletAddress)
		if err == nil {
			return valid, nil
		}
		lastErr = err
		log.Printf("Solana verification attempt %d failed: %v", attempt+1, err)
	}

	// Fail closed: an unreachable RPC never authorizes an attempt.
	return false, fmt.Errorf("solana verification exhausted retries: %v", lastErr)
}

func (v *SolanaVerifier) verifyOnce(ctx context.Context, signature, walletAddress string) (bool, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTransaction",
		Params: []interface{}{
			signature,
			map[string]interface{}{
				"encoding":                       "jsonParsed",
				"commitment":                     "confirmed",
				"maxSupportedTransactionVersion": 0,
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal rpc request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.rpcURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build rpc request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("rpc request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("rpc returned status %d: %s", resp.StatusCode, payload)
	}

	var parsed parsedTransaction
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("failed to decode rpc response: %v", err)
	}

	if parsed.Result == nil {
		// Unknown or unconfirmed signature: reject, don't retry.
		return false, nil
	}

	message := parsed.Result.Transaction.Message

	signedBySender := false
	for _, key := range message.AccountKeys {
		if key.Pubkey == walletAddress && key.Signer {
			signedBySender = true
			break
		}
	}
	if !signedBySender {
		return false, nil
	}

	minLamports := uint64(v.priceSOL * lamportsPerSOL)
	for _, inst := range message.Instructions {
		if inst.Program != "system" || inst.Parsed == nil || inst.Parsed.Type != "transfer" {
			continue
		}
		info := inst.Parsed.Info
		if info.Source == walletAddress && info.Destination == v.treasuryWallet && info.Lamports >= minLamports {
			return true, nil
		}
	}

	return false, nil
}

// NoopVerifier accepts everything; used when payment verification is
// disabled by configuration (off-chain mode).
type NoopVerifier struct{}

func (NoopVerifier) Verify(ctx context.Context, signature, walletAddress string) (bool, error) {
	return true, nil
}
