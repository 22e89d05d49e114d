package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gatekeeper-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub *WebSocketHub
}

type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan *Event
}

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewWebSocketHandler() *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan *Event, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	h.hub.register <- conn

	defer func() {
		h.hub.unregister <- conn
		conn.Close()
	}()

	for {
		// Observers are read-only; drain pings until the peer goes away.
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case conn := <-hub.register:
			hub.clients[conn] = true
			hub.emitWatcherCount()

		case conn := <-hub.unregister:
			if _, ok := hub.clients[conn]; ok {
				delete(hub.clients, conn)
				hub.emitWatcherCount()
			}

		case event := <-hub.broadcast:
			for conn := range hub.clients {
				if err := conn.WriteJSON(event); err != nil {
					conn.Close()
					delete(hub.clients, conn)
				}
			}
		}
	}
}

func (hub *WebSocketHub) emitWatcherCount() {
	count := len(hub.clients)
	for conn := range hub.clients {
		conn.WriteJSON(&Event{Type: "watcher_count", Data: count})
	}
	log.Printf("Watchers: %d", count)
}

func (h *WebSocketHandler) publish(event *Event) {
	select {
	case h.hub.broadcast <- event:
	default:
		log.Printf("Broadcast queue full, dropping %s event", event.Type)
	}
}

func (h *WebSocketHandler) BroadcastFeedEvent(walletAddress, userMessage, aiResponse string) {
	h.publish(&Event{
		Type: "new_feed_event",
		Data: gin.H{
			"type":           "chat",
			"wallet_address": walletAddress,
			"user_message":   userMessage,
			"ai_response":    aiResponse,
			"timestamp":      time.Now().Unix(),
		},
	})
}

func (h *WebSocketHandler) BroadcastStats(session *models.GameSession) {
	h.publish(&Event{
		Type: "stats_update",
		Data: gin.H{
			"session_id":     session.ID,
			"jackpot":        session.Jackpot,
			"total_attempts": session.TotalAttempts,
			"status":         session.Status,
			"winner":         session.Winner,
		},
	})
}

func (h *WebSocketHandler) BroadcastMarketEvent(walletAddress, side string, amount float64) {
	h.publish(&Event{
		Type: "new_market_event",
		Data: gin.H{
			"type":           "bet",
			"wallet_address": walletAddress,
			"side":           side,
			"amount":         amount,
			"timestamp":      time.Now().Unix(),
		},
	})
}

func (h *WebSocketHandler) BroadcastMarketStats(stats *models.MarketStats) {
	h.publish(&Event{
		Type: "market_stats_update",
		Data: stats,
	})
}
