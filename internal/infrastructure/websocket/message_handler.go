package websocket

import (
	"context"
	"encoding/json"
	"time"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/usecase"
	"vendorchat/pkg/logger"
)

// Frame types.
const (
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeTyping   = "typing"
	MessageTypeMarkRead = "mark_read"
	MessageTypeError    = "error"
)

const frameTimeout = 5 * time.Second

type WSMessage struct {
	Type      string      `json:"type"`
	ThreadID  string      `json:"threadId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type inboundFrame struct {
	Type     string          `json:"type"`
	ThreadID string          `json:"threadId"`
	Data     json.RawMessage `json:"data"`
}

type TypingData struct {
	UserID string `json:"userId"`
	Typing bool   `json:"typing"`
}

type MarkReadData struct {
	MessageIDs []string `json:"messageIds"`
}

// ThreadGate resolves the other participant of a thread the caller belongs
// to.
type ThreadGate interface {
	Counterpart(ctx context.Context, who entity.Identity, threadID string) (string, error)
}

type ReadMarker interface {
	MarkRead(ctx context.Context, who entity.Identity, threadID string, messageIDs []string) (*usecase.ReadResult, error)
}

// HandleClientMessage answers one frame received from client.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Debug("WebSocket: bad frame from %s: %v", client.Identity.UserID, err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Type {
	case MessageTypePing:
		m.sendToClient(client, WSMessage{Type: MessageTypePong})
	case MessageTypeTyping:
		m.handleTyping(ctx, client, frame)
	case MessageTypeMarkRead:
		m.handleMarkRead(ctx, client, frame)
	default:
		m.sendErrorToClient(client, "Unknown message type: "+frame.Type)
	}
}

func (m *Manager) handleTyping(ctx context.Context, client *Client, frame inboundFrame) {
	if m.threads == nil {
		return
	}
	if m.limiter != nil {
		if ok, _ := m.limiter.Allow(client.Identity.UserID, "typing"); !ok {
			return
		}
	}
	var data TypingData
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			m.sendErrorToClient(client, "Invalid typing payload")
			return
		}
	}

	counterpart, err := m.threads.Counterpart(ctx, client.Identity, frame.ThreadID)
	if err != nil {
		m.sendErrorToClient(client, "Thread not found")
		return
	}

	data.UserID = client.Identity.UserID
	encoded, err := json.Marshal(WSMessage{
		Type:      MessageTypeTyping,
		ThreadID:  frame.ThreadID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	m.SendToUser(counterpart, encoded)
}

func (m *Manager) handleMarkRead(ctx context.Context, client *Client, frame inboundFrame) {
	if m.reads == nil {
		return
	}
	var data MarkReadData
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			m.sendErrorToClient(client, "Invalid mark_read payload")
			return
		}
	}

	res, err := m.reads.MarkRead(ctx, client.Identity, frame.ThreadID, data.MessageIDs)
	if err != nil {
		logger.Debug("WebSocket: mark_read by %s failed: %v", client.Identity.UserID, err)
		m.sendErrorToClient(client, "Failed to mark messages as read")
		return
	}
	m.sendToClient(client, WSMessage{Type: usecase.EventThreadRead, ThreadID: frame.ThreadID, Data: res})
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	if message.Timestamp == "" {
		message.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	encoded, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: encode %s: %v", message.Type, err)
		return
	}
	if !m.trySend(client, encoded) {
		logger.Warn("WebSocket: could not queue %s for %s", message.Type, client.Identity.UserID)
	}
}

func (m *Manager) sendErrorToClient(client *Client, errorMsg string) {
	m.sendToClient(client, WSMessage{Type: MessageTypeError, Data: map[string]string{"message": errorMsg}})
}
