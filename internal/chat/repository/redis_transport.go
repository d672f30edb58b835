package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/pkg/logger"
)

// RedisTransport rides the platform redis as the live channel. The engine
// subscribes its own identity channel; room-directed frames are published
// to the room channel for the hub workers to fan out.
type RedisTransport struct {
	client *redis.Client
	authID int64

	mu     sync.Mutex
	sub    *redis.PubSub
	closed bool
}

// NewRedisTransport create a redis pub/sub live transport
func NewRedisTransport(client *redis.Client, authID int64) *RedisTransport {
	return &RedisTransport{client: client, authID: authID}
}

func identityChannel(authID int64) string {
	return fmt.Sprintf("chat:user:%d", authID)
}

func roomChannel(roomID int64) string {
	return fmt.Sprintf("chat:room:%d", roomID)
}

// Dial subscribe the identity channel and start delivering frames
func (t *RedisTransport) Dial(ctx context.Context, onFrame FrameHandler, onDrop DropHandler) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.ErrChannelClosed
	}
	sub := t.client.Subscribe(ctx, identityChannel(t.authID))
	t.sub = sub
	t.mu.Unlock()

	// force the subscribe round trip so a dead redis fails Dial, not
	// the first delivery
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}

	go func() {
		ch := sub.Channel()
		for m := range ch {
			var raw map[string]interface{}
			if err := json.Unmarshal([]byte(m.Payload), &raw); err != nil {
				logger.Log.Errorf("redis frame decode error:", err)
				continue
			}
			action := domain.ActionMessage
			for _, k := range aliasAction {
				if s, ok := raw[k].(string); ok && s != "" {
					action = s
					break
				}
			}
			onFrame(RawFrame{Action: action, Data: raw})
		}

		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if !closed && onDrop != nil {
			onDrop(fmt.Errorf("redis subscription closed"))
		}
	}()
	return nil
}

// Send publish one frame to its room channel
func (t *RedisTransport) Send(frame RawFrame) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.ErrChannelClosed
	}
	if t.sub == nil {
		t.mu.Unlock()
		return domain.ErrNotReady
	}
	t.mu.Unlock()

	payload := make(map[string]interface{}, len(frame.Data)+1)
	for k, v := range frame.Data {
		payload[k] = v
	}
	payload["action"] = frame.Action

	roomID, _ := payload["roomId"].(int64)
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return t.client.Publish(context.Background(), roomChannel(roomID), data).Err()
}

// Close unsubscribe, terminal
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.sub != nil {
		err := t.sub.Close()
		t.sub = nil
		return err
	}
	return nil
}
