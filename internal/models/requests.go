package models

type ChatRequest struct {
	Message     string `json:"message" binding:"required"`
	TxSignature string `json:"tx_signature"`
}

type ChatResponse struct {
	Response   string  `json:"response"`
	IsWinner   bool    `json:"is_winner"`
	Jackpot    float64 `json:"jackpot"`
	SessionID  string  `json:"session_id"`
	SeedPhrase string  `json:"seed_phrase,omitempty"`
}

type PredictionRequest struct {
	Side        PredictionSide `json:"side" binding:"required"`
	Amount      float64        `json:"amount" binding:"required"`
	TxSignature string         `json:"tx_signature"`
}

type RegisterGameRequest struct {
	AdminSecret    string  `json:"admin_secret" binding:"required"`
	Name           string  `json:"name"`
	InitialJackpot float64 `json:"initial_jackpot"`
	MinAttempts    int64   `json:"min_attempts"`
}

type ConnectRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}
