package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/usecase"
	"vendorchat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one connection. A user may hold several.
type Client struct {
	Identity entity.Identity
	Conn     *websocket.Conn
	Send     chan []byte
}

func NewClient(who entity.Identity, conn *websocket.Conn) *Client {
	return &Client{Identity: who, Conn: conn, Send: make(chan []byte, sendBuffer)}
}

// Manager tracks live connections on this instance and delivers events to
// them.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex

	threads ThreadGate
	reads   ReadMarker
	limiter usecase.RateLimiter
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Join hands client to the registration loop. It reports false once the
// manager has shut down.
func (m *Manager) Join(client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	}
}

// Leave detaches client. After shutdown it returns immediately.
func (m *Manager) Leave(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Attach wires the collaborators used to answer client frames.
func (m *Manager) Attach(threads ThreadGate, reads ReadMarker, limiter usecase.RateLimiter) {
	m.threads = threads
	m.reads = reads
	m.limiter = limiter
}

// Start runs the registration loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		for {
			select {
			case client := <-m.register:
				m.mutex.Lock()
				conns, ok := m.clients[client.Identity.UserID]
				if !ok {
					conns = make(map[*Client]struct{})
					m.clients[client.Identity.UserID] = conns
				}
				conns[client] = struct{}{}
				m.mutex.Unlock()
				logger.Debug("Client registered: %s", client.Identity.UserID)

			case client := <-m.unregister:
				m.remove(client)
				logger.Debug("Client unregistered: %s", client.Identity.UserID)

			case <-ctx.Done():
				m.mutex.Lock()
				for _, conns := range m.clients {
					for c := range conns {
						close(c.Send)
					}
				}
				m.clients = make(map[string]map[*Client]struct{})
				m.mutex.Unlock()
				return
			}
		}
	}()
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	conns, ok := m.clients[client.Identity.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.Send)
	if len(conns) == 0 {
		delete(m.clients, client.Identity.UserID)
	}
}

// SendToUser queues message on every connection of userID. Connections whose
// buffer is full are dropped; the client falls back to polling.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	var slow []*Client
	for c := range m.clients[userID] {
		select {
		case c.Send <- message:
		default:
			slow = append(slow, c)
		}
	}
	m.mutex.RUnlock()

	for _, c := range slow {
		logger.Warn("Dropping slow websocket client %s", userID)
		m.remove(c)
	}
}

// trySend queues frame for c unless c has been removed or its buffer is
// full. Holding the read lock keeps remove from closing Send underneath.
func (m *Manager) trySend(c *Client, frame []byte) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, ok := m.clients[c.Identity.UserID][c]; !ok {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// Deliver sends an encoded frame to each recipient connected here.
func (m *Manager) Deliver(recipients []string, frame []byte) {
	for _, userID := range recipients {
		m.SendToUser(userID, frame)
	}
}

// Connected reports whether userID has a live connection on this instance.
func (m *Manager) Connected(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID]) > 0
}

// Publish implements usecase.Publisher for single-instance deployments.
func (m *Manager) Publish(ctx context.Context, event usecase.Event) error {
	frame, err := EncodeEvent(event)
	if err != nil {
		return err
	}
	m.Deliver(event.Recipients, frame)
	return nil
}

// EncodeEvent renders event as the frame clients receive.
func EncodeEvent(event usecase.Event) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      event.Type,
		ThreadID:  event.ThreadID,
		Data:      event.Payload,
		Timestamp: event.At.UTC().Format(time.RFC3339Nano),
	})
}

// ReadPump reads frames until the connection closes.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read from %s: %v", c.Identity.UserID, err)
			}
			return
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write to %s: %v", c.Identity.UserID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
