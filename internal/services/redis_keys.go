package services

import "time"

const (
	KeyActiveSession      = "game:active"
	KeySession            = "game:session:%s"
	KeyMessage            = "message:%s"
	KeyGlobalFeed         = "feed:global"
	KeySessionHistory     = "game:session:%s:history:%s" // per-wallet conversation
	KeyPrediction         = "prediction:%s"
	KeySessionPredictions = "game:session:%s:predictions"
	KeyWalletPredictions  = "wallet:%s:predictions"
	KeyWagerReservation   = "game:session:%s:wager:%s" // one wager per wallet
	KeyMarketResolved     = "game:session:%s:resolved"
	KeyTxSignature        = "payment:sig:%s"
	KeyCooldown           = "cooldown:%s"

	TTLSession     = 30 * 24 * time.Hour
	TTLMessage     = 30 * 24 * time.Hour
	TTLTxSignature = 7 * 24 * time.Hour

	FeedLimit    = 50
	HistoryLimit = 5 // exchanges of context fed back to the oracle
)
