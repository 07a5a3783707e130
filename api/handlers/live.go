package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api"
	"github.com/zoe-motors/storefront-api/config"
	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/inbox"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
	"github.com/zoe-motors/storefront-api/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the router
	},
}

// Live serves the websocket feeds and the tickets that open them
type Live struct {
	Hub     *live.Hub
	Tickets *api.Tickets
	Chats   databases.ChatDatabase
	Parts   databases.SparePartDatabase
}

type liveEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// TicketHandler issues a short lived ticket for the caller's websockets
func (l Live) TicketHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	t, err := l.Tickets.Sign(id, time.Now())
	if err != nil {
		config.ErrorStatus("failed to issue ticket", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticket":    t,
		"expiresIn": int(api.DefaultTicketTTL.Seconds()),
	})
}

func (l Live) ticketIdentity(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	id, err := l.Tickets.Parse(r.URL.Query().Get("ticket"))
	if err != nil {
		config.ErrorStatus("invalid ticket", http.StatusUnauthorized, w, err)
		return session.Identity{}, false
	}
	return id, true
}

// SparePartsSocket streams the whole spare parts catalog after every change
func (l Live) SparePartsSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := live.Watch(ctx, l.Hub, live.TopicSpareParts, func(ctx context.Context) ([]models.SparePart, error) {
		parts, err := l.Parts.Find(ctx, bson.M{})
		if parts == nil {
			parts = []models.SparePart{}
		}
		return parts, err
	})
	defer sub.Close()
	serveSocket(conn, cancel, "spare_parts", sub.Updates())
}

// UnreadSocket streams the unread count of the ticket holder's thread
func (l Live) UnreadSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := l.ticketIdentity(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	counter := inbox.NewUnreadCounter(ctx, l.Hub, l.Chats, id.UserID)
	defer counter.Close()
	zap.S().Debugw("unread socket opened", "user", id.UserID)
	serveSocket(conn, cancel, "unread", counter.Changes())
}

// ChatSocket streams the ticket holder's chat thread after every change
func (l Live) ChatSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := l.ticketIdentity(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	thread := Chat{DB: l.Chats}
	sub := live.Watch(ctx, l.Hub, live.ChatTopic(id.UserID), func(ctx context.Context) ([]models.ChatMessage, error) {
		return thread.Thread(ctx, id.UserID)
	})
	defer sub.Close()
	serveSocket(conn, cancel, "chat", sub.Updates())
}

// serveSocket writes every update as an event until the peer goes away or
// the updates end. The read side only handles pongs and close frames.
func serveSocket[T any](conn *websocket.Conn, cancel context.CancelFunc, event string, updates <-chan T) {
	defer cancel()
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case v, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(liveEvent{Event: event, Data: v}); err != nil {
				zap.S().Debugw("websocket write failed", "event", event, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
