package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cuidarmed_chat_client/internal/chat/domain"
	errprocess "cuidarmed_chat_client/pkg/err"
	"cuidarmed_chat_client/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// the hub names the action key inconsistently as well
var aliasAction = []string{"action", "Action", "type", "event"}

// WebsocketTransport is the gorilla client connection to the hosted
// real-time hub. One read pump per dial; writes are serialized under a
// mutex with a write deadline.
type WebsocketTransport struct {
	url    string
	bearer string

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

// NewWebsocketTransport create a websocket live transport
func NewWebsocketTransport(url, bearer string) *WebsocketTransport {
	return &WebsocketTransport{url: url, bearer: bearer}
}

// Dial connect to the hub and start the read pump
func (t *WebsocketTransport) Dial(ctx context.Context, onFrame FrameHandler, onDrop DropHandler) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.ErrChannelClosed
	}
	t.mu.Unlock()

	if t.url == "" {
		return errprocess.Set("live websocket url is not configured")
	}

	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	header := http.Header{}
	if t.bearer != "" {
		header.Set("Authorization", "Bearer "+t.bearer)
	}

	conn, _, err := dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	t.mu.Lock()
	t.conn = conn
	t.done = done
	t.mu.Unlock()

	go t.readPump(conn, done, onFrame, onDrop)
	go t.pingLoop(conn, done)
	return nil
}

func (t *WebsocketTransport) readPump(conn *websocket.Conn, done chan struct{}, onFrame FrameHandler, onDrop DropHandler) {
	defer func() {
		close(done)
		conn.Close()
		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		t.mu.Unlock()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Errorf("websocket read error:", err)
			}
			if onDrop != nil {
				onDrop(err)
			}
			return
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(payload, &raw); err != nil {
			logger.Log.Errorf("websocket frame decode error:", err)
			continue
		}

		action := ""
		for _, k := range aliasAction {
			if s, ok := raw[k].(string); ok && s != "" {
				action = s
				break
			}
		}
		onFrame(RawFrame{Action: action, Data: raw})
	}
}

func (t *WebsocketTransport) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Send write one frame to the hub
func (t *WebsocketTransport) Send(frame RawFrame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return domain.ErrChannelClosed
	}
	if t.conn == nil {
		return domain.ErrNotReady
	}

	payload := make(map[string]interface{}, len(frame.Data)+2)
	for k, v := range frame.Data {
		payload[k] = v
	}
	payload["action"] = frame.Action
	// per-frame key so the hub can dedupe resends
	payload["clientKey"] = uuid.New().String()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tear the connection down, terminal
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.conn != nil {
		t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}
