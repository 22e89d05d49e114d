package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// SessionDefaults seeds a freshly provisioned session.
type SessionDefaults struct {
	Name                   string
	InitialJackpot         float64
	MinAttemptsBeforeYield int64
}

// GetOrCreateActiveSession returns the current active session, provisioning
// one if none exists. The active pointer is claimed with SET NX so two
// concurrent callers can never both create a session: the loser deletes its
// candidate and reads the winner's.
func (s *RedisService) GetOrCreateActiveSession(defaults SessionDefaults) (*models.GameSession, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id, err := s.client.Get(s.ctx, KeyActiveSession).Result()
		if err == nil {
			return s.GetSession(id)
		}
		if err != redis.Nil {
			return nil, fmt.Errorf("failed to read active session pointer: %v", err)
		}

		name := defaults.Name
		if name == "" {
			name = "GATEKEEPER VAULT"
		}

		session := &models.GameSession{
			ID:                     models.GenerateSessionID(),
			Name:                   name,
			Status:                 models.SessionStatusActive,
			Jackpot:                defaults.InitialJackpot,
			TotalAttempts:          0,
			MinAttemptsBeforeYield: defaults.MinAttemptsBeforeYield,
			StartedAt:              time.Now().Unix(),
		}

		if err := s.saveSession(session); err != nil {
			return nil, err
		}

		claimed, err := s.client.SetNX(s.ctx, KeyActiveSession, session.ID, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to claim active session pointer: %v", err)
		}
		if claimed {
			return session, nil
		}

		// Lost the provisioning race; discard the candidate and re-read.
		s.client.Del(s.ctx, fmt.Sprintf(KeySession, session.ID))
	}

	return nil, fmt.Errorf("could not settle on an active session")
}

func (s *RedisService) GetActiveSession() (*models.GameSession, error) {
	id, err := s.client.Get(s.ctx, KeyActiveSession).Result()
	if err == redis.Nil {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active session pointer: %v", err)
	}
	return s.GetSession(id)
}

func (s *RedisService) GetSession(sessionID string) (*models.GameSession, error) {
	key := fmt.Sprintf(KeySession, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	var session models.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}

	return &session, nil
}

func (s *RedisService) saveSession(session *models.GameSession) error {
	key := fmt.Sprintf(KeySession, session.ID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	return s.client.Set(s.ctx, key, data, TTLSession).Err()
}

var incrementAttemptsScript = redis.NewScript(`
	local key = KEYS[1]

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("session not found")
	end

	local session = cjson.decode(data)

	if session.status ~= "active" then
		return redis.error_reply("session not active")
	end

	session.total_attempts = session.total_attempts + 1

	redis.call("SET", key, cjson.encode(session))

	return session.total_attempts
`)

// IncrementAttempts bumps the session counter with fetch-and-add semantics
// and returns the new value.
func (s *RedisService) IncrementAttempts(sessionID string) (int64, error) {
	key := fmt.Sprintf(KeySession, sessionID)

	count, err := incrementAttemptsScript.Run(s.ctx, s.client, []string{key}).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempts: %v", err)
	}

	return count, nil
}

var decrementAttemptsScript = redis.NewScript(`
	local key = KEYS[1]

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("session not found")
	end

	local session = cjson.decode(data)

	session.total_attempts = session.total_attempts - 1
	if session.total_attempts < 0 then
		session.total_attempts = 0
	end

	redis.call("SET", key, cjson.encode(session))

	return session.total_attempts
`)

// DecrementAttempts is the compensating action for an attempt that never
// produced a judgement (no oracle response). Floors at zero.
func (s *RedisService) DecrementAttempts(sessionID string) error {
	key := fmt.Sprintf(KeySession, sessionID)

	if err := decrementAttemptsScript.Run(s.ctx, s.client, []string{key}).Err(); err != nil {
		return fmt.Errorf("failed to decrement attempts: %v", err)
	}

	return nil
}

var sealWinnerScript = redis.NewScript(`
	local key = KEYS[1]
	local activeKey = KEYS[2]
	local winner = ARGV[1]
	local now = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("session not found")
	end

	local session = cjson.decode(data)

	if session.status ~= "active" then
		return 0
	end
	if session.winner and session.winner ~= "" then
		return 0
	end

	session.status = "completed"
	session.winner = winner
	session.ended_at = now

	redis.call("SET", key, cjson.encode(session))

	if redis.call("GET", activeKey) == session.id then
		redis.call("DEL", activeKey)
	end

	return 1
`)

// SealWithWinner atomically transitions active -> completed and records the
// winner. Exactly one concurrent claim succeeds; every other caller gets
// ErrAlreadySealed and must not overwrite the recorded winner.
func (s *RedisService) SealWithWinner(sessionID, walletAddress string) error {
	keys := []string{fmt.Sprintf(KeySession, sessionID), KeyActiveSession}

	sealed, err := sealWinnerScript.Run(s.ctx, s.client, keys, walletAddress, time.Now().Unix()).Int64()
	if err != nil {
		return fmt.Errorf("failed to seal session: %v", err)
	}
	if sealed == 0 {
		return ErrAlreadySealed
	}

	return nil
}

var completeSessionScript = redis.NewScript(`
	local key = KEYS[1]
	local activeKey = KEYS[2]
	local now = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("session not found")
	end

	local session = cjson.decode(data)

	if session.status ~= "active" then
		return 0
	end

	session.status = "completed"
	session.ended_at = now

	redis.call("SET", key, cjson.encode(session))

	if redis.call("GET", activeKey) == session.id then
		redis.call("DEL", activeKey)
	end

	return 1
`)

// CompleteSession ends a round without a winner (admin rotation or timeout).
// Returns false if the session was already completed.
func (s *RedisService) CompleteSession(sessionID string) (bool, error) {
	keys := []string{fmt.Sprintf(KeySession, sessionID), KeyActiveSession}

	done, err := completeSessionScript.Run(s.ctx, s.client, keys, time.Now().Unix()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to complete session: %v", err)
	}

	return done == 1, nil
}

func (s *RedisService) SaveMessage(msg *models.Message) error {
	key := fmt.Sprintf(KeyMessage, msg.ID)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %v", err)
	}

	if err := s.client.Set(s.ctx, key, data, TTLMessage).Err(); err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	score := float64(msg.CreatedAt)
	if err := s.client.ZAdd(s.ctx, KeyGlobalFeed, redis.Z{
		Score:  score,
		Member: msg.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to feed: %v", err)
	}

	// Keep only the most recent 100 feed entries
	s.client.ZRemRangeByRank(s.ctx, KeyGlobalFeed, 0, -101)

	historyKey := fmt.Sprintf(KeySessionHistory, msg.SessionID, msg.WalletAddress)
	s.client.RPush(s.ctx, historyKey, data)
	s.client.LTrim(s.ctx, historyKey, -20, -1)
	s.client.Expire(s.ctx, historyKey, TTLMessage)

	return nil
}

func (s *RedisService) GetFeed(limit int64) ([]*models.Message, error) {
	if limit <= 0 || limit > FeedLimit {
		limit = FeedLimit
	}

	msgIDs, err := s.client.ZRevRange(s.ctx, KeyGlobalFeed, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %v", err)
	}

	var messages []*models.Message
	for _, msgID := range msgIDs {
		data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyMessage, msgID)).Result()
		if err != nil {
			continue
		}

		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}

		messages = append(messages, &msg)
	}

	return messages, nil
}

// GetConversation returns the most recent exchanges between one wallet and
// the gatekeeper within a session, oldest first.
func (s *RedisService) GetConversation(sessionID, walletAddress string, limit int64) ([]*models.Message, error) {
	key := fmt.Sprintf(KeySessionHistory, sessionID, walletAddress)

	entries, err := s.client.LRange(s.ctx, key, -2*limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %v", err)
	}

	var messages []*models.Message
	for _, entry := range entries {
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			continue
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

// ReserveWager claims the one-wager-per-wallet slot for a session. Returns
// false when the wallet already holds a wager there.
func (s *RedisService) ReserveWager(sessionID, walletAddress, predictionID string) (bool, error) {
	key := fmt.Sprintf(KeyWagerReservation, sessionID, walletAddress)

	reserved, err := s.client.SetNX(s.ctx, key, predictionID, TTLSession).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve wager slot: %v", err)
	}

	return reserved, nil
}

// ReleaseWager frees the reservation when the prediction write fails.
func (s *RedisService) ReleaseWager(sessionID, walletAddress string) error {
	key := fmt.Sprintf(KeyWagerReservation, sessionID, walletAddress)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) SavePrediction(p *models.Prediction) error {
	key := fmt.Sprintf(KeyPrediction, p.ID)

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %v", err)
	}

	if err := s.client.Set(s.ctx, key, data, TTLSession).Err(); err != nil {
		return fmt.Errorf("failed to save prediction: %v", err)
	}

	sessionKey := fmt.Sprintf(KeySessionPredictions, p.SessionID)
	if err := s.client.SAdd(s.ctx, sessionKey, p.ID).Err(); err != nil {
		return fmt.Errorf("failed to index prediction: %v", err)
	}
	s.client.Expire(s.ctx, sessionKey, TTLSession)

	walletKey := fmt.Sprintf(KeyWalletPredictions, p.WalletAddress)
	s.client.ZAdd(s.ctx, walletKey, redis.Z{
		Score:  float64(p.CreatedAt),
		Member: p.ID,
	})
	s.client.ZRemRangeByRank(s.ctx, walletKey, 0, -101)

	return nil
}

func (s *RedisService) UpdatePrediction(p *models.Prediction) error {
	key := fmt.Sprintf(KeyPrediction, p.ID)

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %v", err)
	}

	return s.client.Set(s.ctx, key, data, TTLSession).Err()
}

func (s *RedisService) GetPrediction(predictionID string) (*models.Prediction, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyPrediction, predictionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %v", err)
	}

	var p models.Prediction
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prediction: %v", err)
	}

	return &p, nil
}

func (s *RedisService) GetSessionPredictions(sessionID string) ([]*models.Prediction, error) {
	sessionKey := fmt.Sprintf(KeySessionPredictions, sessionID)

	predIDs, err := s.client.SMembers(s.ctx, sessionKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session predictions: %v", err)
	}

	return s.bulkGetPredictions(predIDs)
}

func (s *RedisService) GetWalletPredictions(walletAddress string, limit int64) ([]*models.Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	walletKey := fmt.Sprintf(KeyWalletPredictions, walletAddress)

	predIDs, err := s.client.ZRevRange(s.ctx, walletKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet predictions: %v", err)
	}

	return s.bulkGetPredictions(predIDs)
}

func (s *RedisService) bulkGetPredictions(predIDs []string) ([]*models.Prediction, error) {
	if len(predIDs) == 0 {
		return []*models.Prediction{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(predIDs))

	for i, predID := range predIDs {
		cmds[i] = pipe.Get(s.ctx, fmt.Sprintf(KeyPrediction, predID))
	}

	_, err := pipe.Exec(s.ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	var predictions []*models.Prediction
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}

		var p models.Prediction
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			continue
		}

		predictions = append(predictions, &p)
	}

	return predictions, nil
}

// MarkMarketResolved claims the resolve-once marker for a session. Returns
// false when resolution already ran, which callers treat as a no-op success.
func (s *RedisService) MarkMarketResolved(sessionID string) (bool, error) {
	key := fmt.Sprintf(KeyMarketResolved, sessionID)

	claimed, err := s.client.SetNX(s.ctx, key, time.Now().Unix(), TTLSession).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark market resolved: %v", err)
	}

	return claimed, nil
}

// ConsumeTxSignature records a payment proof as spent. Returns false when
// the signature was seen before (replay).
func (s *RedisService) ConsumeTxSignature(signature, walletAddress string) (bool, error) {
	key := fmt.Sprintf(KeyTxSignature, signature)

	fresh, err := s.client.SetNX(s.ctx, key, walletAddress, TTLTxSignature).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record tx signature: %v", err)
	}

	return fresh, nil
}

// CheckCooldown enforces the per-wallet chat spacing with a fixed window
// keyed by wallet. The key expires on its own, so the limiter state stays
// bounded without a cleanup pass.
func (s *RedisService) CheckCooldown(walletAddress string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	key := fmt.Sprintf(KeyCooldown, walletAddress)

	allowed, err := s.client.SetNX(s.ctx, key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cooldown: %v", err)
	}

	return allowed, nil
}

func (s *RedisService) ClearCooldown(walletAddress string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyCooldown, walletAddress)).Err()
}

func (s *RedisService) DeleteSession(sessionID string) error {
	s.client.Del(s.ctx, fmt.Sprintf(KeySessionPredictions, sessionID))
	s.client.Del(s.ctx, fmt.Sprintf(KeyMarketResolved, sessionID))
	return s.client.Del(s.ctx, fmt.Sprintf(KeySession, sessionID)).Err()
}

func (s *RedisService) DeleteActivePointer() error {
	return s.client.Del(s.ctx, KeyActiveSession).Err()
}

func (s *RedisService) DeletePrediction(predictionID string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyPrediction, predictionID)).Err()
}
