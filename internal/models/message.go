package models

type MessageRole string

const (
	RoleUser MessageRole = "user"
	RoleAI   MessageRole = "ai"
)

const MaxMessageLength = 2000

// Message is one side of an exchange in the public feed. Records are
// immutable once written; TxSignature is only present on user messages.
type Message struct {
	ID            string      `json:"id" redis:"id"`
	WalletAddress string      `json:"wallet_address" redis:"wallet_address"`
	SessionID     string      `json:"session_id" redis:"session_id"`
	Role          MessageRole `json:"role" redis:"role"`
	Content       string      `json:"content" redis:"content"`
	TxSignature   string      `json:"tx_signature,omitempty" redis:"tx_signature"`
	IsWinner      bool        `json:"is_winner" redis:"is_winner"`
	CreatedAt     int64       `json:"created_at" redis:"created_at"`
}
