// Package websocket delivers live view state to connected clients: each
// client owns at most one feed synchronizer and one notification panel,
// and every store snapshot they produce is pushed as a frame. Teardown is
// tied to the connection: closing it cancels every live subscription the
// client held.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"inkwell/feed"
	"inkwell/logx"
	"inkwell/middleware"
	"inkwell/models"
	"inkwell/notify"
	"inkwell/store"
)

type Manager struct {
	store      store.Store
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type Client struct {
	conn    *websocket.Conn
	session *models.Session
	send    chan []byte
	manager *Manager

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	feedSync *feed.Synchronizer
	panel    *notify.Panel
}

func NewManager(st store.Store) *Manager {
	return &Manager{
		store:      st,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()
			logx.Info.Printf("WebSocket client registered for user %s. Total clients: %d", client.session.UID, m.ClientCount())

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
			}
			m.mu.Unlock()
			client.teardown()
			logx.Info.Printf("WebSocket client unregistered. Total clients: %d", m.ClientCount())
		}
	}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func Handler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}

		claims, err := middleware.ParseToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		readCtx, readCancel := context.WithTimeout(r.Context(), 10*time.Second)
		userDoc, err := manager.store.PointRead(readCtx, models.UserPath(claims.UserID))
		readCancel()
		if err != nil {
			http.Error(w, "Unknown user", http.StatusUnauthorized)
			return
		}
		user, err := models.UserFromDoc(userDoc)
		if err != nil {
			http.Error(w, "Unknown user", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		client := &Client{
			conn:    conn,
			session: user.Session(),
			send:    make(chan []byte, 256),
			manager: manager,
			ctx:     ctx,
			cancel:  cancel,
		}

		manager.register <- client

		client.sendFrame("connected", map[string]interface{}{
			"userId": client.session.UID,
			"time":   time.Now().Unix(),
		})

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) sendFrame(frameType string, payload interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"type":    frameType,
		"payload": payload,
	})
	if err != nil {
		logx.Error.Printf("Error marshaling WebSocket frame: %v", err)
		return
	}
	select {
	case c.send <- msg:
	default:
		// Slow client; drop the frame rather than block a snapshot
		// delivery. The next snapshot supersedes it anyway.
	}
}

// teardown cancels every live subscription owned by this client. After it
// returns no snapshot callback will fire for this client again.
func (c *Client) teardown() {
	c.cancel()
	c.mu.Lock()
	fs := c.feedSync
	p := c.panel
	c.feedSync = nil
	c.panel = nil
	c.mu.Unlock()
	if fs != nil {
		fs.Close()
	}
	if p != nil {
		p.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logx.Warn.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var data struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(message, &data); err != nil {
			logx.Warn.Printf("WebSocket message unmarshal error: %v", err)
			continue
		}

		switch data.Type {
		case "subscribe_feed":
			c.handleSubscribeFeed(data.Payload)
		case "subscribe_notifications":
			c.handleSubscribeNotifications()
		case "mark_read":
			c.handleMarkRead()
		case "ping":
			c.sendFrame("pong", map[string]interface{}{"time": time.Now().Unix()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleSubscribeFeed starts or re-targets the client's feed synchronizer.
// Switching modes goes through SetMode, which tears the old subscription
// down before the new one is established.
func (c *Client) handleSubscribeFeed(payload json.RawMessage) {
	var req struct {
		Mode string `json:"mode"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			c.sendFrame("error", map[string]interface{}{"message": "invalid subscribe_feed payload"})
			return
		}
	}
	mode := feed.Mode(req.Mode)
	if mode != feed.ModeFollowing {
		mode = feed.ModeGlobal
	}

	c.mu.Lock()
	if c.feedSync == nil {
		c.feedSync = feed.NewSynchronizer(c.manager.store, func(state feed.State) {
			c.sendFrame("feed_snapshot", map[string]interface{}{
				"mode":     state.Mode,
				"loading":  state.Loading,
				"posts":    state.Posts,
				"trending": state.Trending,
			})
		})
	}
	fs := c.feedSync
	c.mu.Unlock()

	if err := fs.SetMode(c.ctx, mode, c.session); err != nil {
		logx.Warn.Printf("subscribe_feed for user %s: %v", c.session.UID, err)
		c.sendFrame("error", map[string]interface{}{"message": "feed subscription failed"})
	}
}

func (c *Client) handleSubscribeNotifications() {
	c.mu.Lock()
	if c.panel == nil {
		c.panel = notify.NewPanel(c.manager.store, c.session.UID)
	}
	p := c.panel
	c.mu.Unlock()

	err := p.Watch(c.ctx, func(notes []models.Notification) {
		unread := 0
		for _, n := range notes {
			if !n.Read {
				unread++
			}
		}
		c.sendFrame("notifications_snapshot", map[string]interface{}{
			"notifications": notes,
			"unread":        unread,
		})
	})
	if err != nil {
		logx.Warn.Printf("subscribe_notifications for user %s: %v", c.session.UID, err)
		c.sendFrame("error", map[string]interface{}{"message": "notification subscription failed"})
	}
}

// handleMarkRead is the panel-open read receipt: flip everything unread in
// the panel's current snapshot in one batch.
func (c *Client) handleMarkRead() {
	c.mu.Lock()
	p := c.panel
	c.mu.Unlock()
	if p == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()
	marked, err := p.MarkAllRead(ctx)
	if err != nil {
		logx.Warn.Printf("mark_read for user %s: %v", c.session.UID, err)
		c.sendFrame("error", map[string]interface{}{"message": "failed to mark notifications read"})
		return
	}
	c.sendFrame("marked_read", map[string]interface{}{"marked": marked})
}
