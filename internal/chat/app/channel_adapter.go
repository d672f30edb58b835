package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/internal/chat/repository"
	"cuidarmed_chat_client/pkg/logger"
)

// ChannelState live channel connection state
type ChannelState int32

// Disconnected → Connecting → Connected → Reconnecting → Connected,
// Closed is terminal after an explicit close.
const (
	// StateDisconnected no connection yet
	StateDisconnected ChannelState = iota
	// StateConnecting first dial in flight
	StateConnecting
	// StateConnected frames flowing
	StateConnected
	// StateReconnecting connection lost, backoff dialing
	StateReconnecting
	// StateClosed explicitly closed, terminal
	StateClosed
)

// String implement fmt.Stringer
func (s ChannelState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ReconnectDelay returns the retry interval for an outage of the given
// age: every 2s through the first minute, every 10s after.
func ReconnectDelay(outage time.Duration) time.Duration {
	if outage < time.Minute {
		return 2 * time.Second
	}
	return 10 * time.Second
}

// ChannelAdapter bridges the message logs, the unread aggregator and the
// rendering surface to the hosted real-time transport. Outbound
// operations while not connected fail with ErrNotReady, nothing is
// queued behind the caller's back.
type ChannelAdapter struct {
	transport repository.LiveTransport
	viewer    domain.Identity
	unread    *UnreadAggregator
	render    Renderer
	connID    string

	mu     sync.Mutex
	state  ChannelState
	logs   map[int64]*MessageLog
	joined map[int64]struct{}

	// swapped out by tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewChannelAdapter create the adapter for one session
func NewChannelAdapter(transport repository.LiveTransport, viewer domain.Identity, unread *UnreadAggregator, render Renderer) *ChannelAdapter {
	if render == nil {
		render = NopRenderer{}
	}
	return &ChannelAdapter{
		transport: transport,
		viewer:    viewer,
		unread:    unread,
		render:    render,
		connID:    uuid.New().String(),
		logs:      make(map[int64]*MessageLog),
		joined:    make(map[int64]struct{}),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// State current connection state
func (a *ChannelAdapter) State() ChannelState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Connect establishes the persistent connection. Later drops reconnect
// on their own with the backoff schedule.
func (a *ChannelAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case StateClosed:
		a.mu.Unlock()
		return domain.ErrChannelClosed
	case StateConnected, StateConnecting, StateReconnecting:
		a.mu.Unlock()
		return nil
	}
	a.state = StateConnecting
	a.mu.Unlock()

	if err := a.transport.Dial(ctx, a.handleFrame, a.handleDrop); err != nil {
		a.mu.Lock()
		a.state = StateDisconnected
		a.mu.Unlock()
		return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}

	a.mu.Lock()
	a.state = StateConnected
	a.mu.Unlock()
	logger.Log.Info("live channel connected", zap.String("connID", a.connID))
	return nil
}

func (a *ChannelAdapter) handleDrop(err error) {
	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()
		return
	}
	a.state = StateReconnecting
	a.mu.Unlock()

	logger.Log.Warn("live channel dropped", zap.String("connID", a.connID), zap.Error(err))
	go a.reconnectLoop(a.now())
}

func (a *ChannelAdapter) reconnectLoop(outageStart time.Time) {
	ctx := context.Background()
	for {
		a.mu.Lock()
		if a.state != StateReconnecting {
			a.mu.Unlock()
			return
		}
		a.mu.Unlock()

		a.sleep(ReconnectDelay(a.now().Sub(outageStart)))

		err := a.transport.Dial(ctx, a.handleFrame, a.handleDrop)
		if errors.Is(err, domain.ErrChannelClosed) {
			return
		}
		if err != nil {
			logger.Log.Warn("live channel redial failed", zap.Error(err))
			continue
		}

		a.mu.Lock()
		a.state = StateConnected
		rooms := make([]int64, 0, len(a.joined))
		for roomID := range a.joined {
			rooms = append(rooms, roomID)
		}
		a.mu.Unlock()

		logger.Log.Info("live channel reconnected", zap.String("connID", a.connID))
		for _, roomID := range rooms {
			if err := a.sendJoin(roomID); err != nil {
				logger.Log.Errorf("rejoin failed:", err, zap.Int64("roomID", roomID))
			}
		}
		if a.unread != nil {
			if err := a.unread.Resync(ctx); err != nil {
				logger.Log.Errorf("post-reconnect resync failed:", err)
			}
		}
		return
	}
}

// AttachLog wires the open room's log into inbound dispatch
func (a *ChannelAdapter) AttachLog(log *MessageLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs[log.RoomID()] = log
}

// DetachLog removes the room's log from inbound dispatch
func (a *ChannelAdapter) DetachLog(roomID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.logs, roomID)
}

// Join subscribe the identity to a room. Ids are validated before
// anything touches the wire.
func (a *ChannelAdapter) Join(roomID int64) error {
	if roomID <= 0 || a.viewer.AuthID <= 0 {
		return fmt.Errorf("%w: join room=%d identity=%d", domain.ErrValidation, roomID, a.viewer.AuthID)
	}
	if err := a.requireConnected(); err != nil {
		return err
	}
	if err := a.sendJoin(roomID); err != nil {
		return err
	}

	a.mu.Lock()
	a.joined[roomID] = struct{}{}
	a.mu.Unlock()
	return nil
}

func (a *ChannelAdapter) sendJoin(roomID int64) error {
	return a.transport.Send(repository.RawFrame{
		Action: domain.ActionJoin,
		Data: map[string]interface{}{
			"roomId": roomID,
			"userId": a.viewer.AuthID,
		},
	})
}

// Leave unsubscribe the identity from a room
func (a *ChannelAdapter) Leave(roomID int64) error {
	if roomID <= 0 || a.viewer.AuthID <= 0 {
		return fmt.Errorf("%w: leave room=%d identity=%d", domain.ErrValidation, roomID, a.viewer.AuthID)
	}
	if err := a.requireConnected(); err != nil {
		return err
	}

	err := a.transport.Send(repository.RawFrame{
		Action: domain.ActionLeave,
		Data: map[string]interface{}{
			"roomId": roomID,
			"userId": a.viewer.AuthID,
		},
	})

	a.mu.Lock()
	delete(a.joined, roomID)
	a.mu.Unlock()
	return err
}

// SendMessage push one chat message over the live channel. The caller
// performs the optimistic insert first and rolls it back on failure.
func (a *ChannelAdapter) SendMessage(roomID, senderAuthID int64, text string) error {
	if roomID <= 0 || senderAuthID <= 0 || !ValidText(text) {
		return fmt.Errorf("%w: send room=%d sender=%d", domain.ErrValidation, roomID, senderAuthID)
	}
	if err := a.requireConnected(); err != nil {
		return err
	}

	return a.transport.Send(repository.RawFrame{
		Action: domain.ActionSendMessage,
		Data: map[string]interface{}{
			"roomId":              roomID,
			"senderId":            senderAuthID,
			"senderParticipantId": a.viewer.ParticipantID,
			"text":                text,
			"sentAt":              a.now().UTC().Format(time.RFC3339Nano),
		},
	})
}

// SendTyping push a typing start/stop notify, best effort
func (a *ChannelAdapter) SendTyping(roomID int64, started bool) error {
	if roomID <= 0 || a.viewer.AuthID <= 0 {
		return fmt.Errorf("%w: typing room=%d", domain.ErrValidation, roomID)
	}
	if err := a.requireConnected(); err != nil {
		return err
	}

	action := domain.ActionTyping
	if !started {
		action = domain.ActionStopTyping
	}
	return a.transport.Send(repository.RawFrame{
		Action: action,
		Data: map[string]interface{}{
			"roomId": roomID,
			"userId": a.viewer.AuthID,
		},
	})
}

// Close tears the channel down for good
func (a *ChannelAdapter) Close() error {
	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()
		return nil
	}
	a.state = StateClosed
	a.mu.Unlock()
	return a.transport.Close()
}

func (a *ChannelAdapter) requireConnected() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateClosed:
		return domain.ErrChannelClosed
	case StateConnected:
		return nil
	}
	return fmt.Errorf("%w: channel is %s", domain.ErrNotReady, a.state)
}

// handleFrame normalizes a transport frame and dispatches it
func (a *ChannelAdapter) handleFrame(frame repository.RawFrame) {
	switch frame.Action {
	case domain.ActionMessage, "message", "chat_message":
		msg := domain.NormalizeMessage(frame.Data)
		domain.DeriveParticipant(&msg, a.viewer)
		a.Dispatch(domain.InboundEvent{Kind: domain.MessageReceived, Message: msg})

	case domain.ActionTyping, "start_typing":
		m := domain.NormalizeMessage(frame.Data)
		a.Dispatch(domain.InboundEvent{Kind: domain.TypingStarted, Message: m, UserID: m.SenderAuthID})

	case domain.ActionStopTyping, "stopped_typing":
		m := domain.NormalizeMessage(frame.Data)
		a.Dispatch(domain.InboundEvent{Kind: domain.TypingStopped, Message: m, UserID: m.SenderAuthID})

	default:
		logger.Log.Debug("ignoring live frame", zap.String("action", frame.Action))
	}
}

// Dispatch is the single entry point for inbound events. Live traffic
// and synthetic test feeds go through the same path: reconcile into the
// room log first, then the unread ledger, then render.
func (a *ChannelAdapter) Dispatch(ev domain.InboundEvent) {
	switch ev.Kind {
	case domain.MessageReceived:
		a.mu.Lock()
		log := a.logs[ev.Message.RoomID]
		a.mu.Unlock()

		if log != nil {
			log.Reconcile(ev.Message)
		}
		if a.unread != nil {
			a.unread.OnInboundMessage(ev.Message)
		}
		if log != nil {
			a.render.RenderMessages(ev.Message.RoomID, log.Messages())
		}

	case domain.TypingStarted, domain.TypingStopped:
		if a.viewer.OwnsAuth(ev.UserID) {
			return
		}
		a.render.RenderTyping(ev.Message.RoomID, ev.Kind == domain.TypingStarted)
	}
}
