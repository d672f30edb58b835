package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/internal/chat/repository"
	"cuidarmed_chat_client/pkg/logger"
)

// Session is the explicit context object owning the whole chat engine
// state for one logged-in identity: registry, unread ledger, live
// channel and the open room logs. Created at login, torn down at
// logout; nothing here is a module-level singleton.
type Session struct {
	viewer   domain.Identity
	registry *RoomRegistry
	unread   *UnreadAggregator
	adapter  *ChannelAdapter
	render   Renderer
	msgRepo  repository.MessageRepository
	receipts repository.ReadReceiptRepository
	pageSize int

	mu   sync.Mutex
	logs map[int64]*MessageLog
}

// NewSession wire the engine for one identity
func NewSession(
	viewer domain.Identity,
	registry *RoomRegistry,
	unread *UnreadAggregator,
	adapter *ChannelAdapter,
	msgRepo repository.MessageRepository,
	receipts repository.ReadReceiptRepository,
	render Renderer,
	pageSize int,
) *Session {
	if render == nil {
		render = NopRenderer{}
	}
	return &Session{
		viewer:   viewer,
		registry: registry,
		unread:   unread,
		adapter:  adapter,
		render:   render,
		msgRepo:  msgRepo,
		receipts: receipts,
		pageSize: pageSize,
		logs:     make(map[int64]*MessageLog),
	}
}

// Viewer the session identity
func (s *Session) Viewer() domain.Identity { return s.viewer }

// Registry the session room registry
func (s *Session) Registry() *RoomRegistry { return s.registry }

// Unread the session unread aggregator
func (s *Session) Unread() *UnreadAggregator { return s.unread }

// Adapter the session live channel
func (s *Session) Adapter() *ChannelAdapter { return s.adapter }

// Start connects the live channel and primes the unread ledger. A
// failed initial resync is recoverable, the badge starts at zero and
// the next reconnect or read event fixes it.
func (s *Session) Start(ctx context.Context) error {
	if err := s.adapter.Connect(ctx); err != nil {
		return err
	}
	if err := s.unread.Resync(ctx); err != nil {
		logger.Log.Warn("initial unread resync failed", zap.Error(err))
	}
	return nil
}

// OpenRoom opens the chat surface for a room: the room becomes active
// immediately so late events from a previously open room cannot be
// suppressed by mistake, then history and the live join run, then the
// loaded backlog is marked read.
func (s *Session) OpenRoom(ctx context.Context, roomID int64) (*MessageLog, error) {
	if roomID <= 0 {
		return nil, fmt.Errorf("%w: room=%d", domain.ErrValidation, roomID)
	}

	s.unread.SetActiveRoom(roomID)

	log := NewMessageLog(roomID, s.viewer, s.msgRepo, s.pageSize)
	s.mu.Lock()
	s.logs[roomID] = log
	s.mu.Unlock()
	s.adapter.AttachLog(log)

	log.LoadHistory(ctx)
	if err := s.adapter.Join(roomID); err != nil {
		// not fatal for the surface, history still renders
		logger.Log.Warn("live join failed", zap.Int64("roomID", roomID), zap.Error(err))
	}
	s.render.RenderMessages(roomID, log.Messages())

	// read marking needs the loaded history and the join both settled,
	// the count of messages to mark depends on what was loaded
	s.markRead(ctx, roomID, log)
	return log, nil
}

// OpenRoomForAppointment resolves (or creates) the appointment's room
// and opens its surface.
func (s *Session) OpenRoomForAppointment(ctx context.Context, doctorID, patientID, appointmentID int64) (*MessageLog, error) {
	room, err := s.registry.CreateOrGetRoom(ctx, doctorID, patientID, appointmentID)
	if err != nil {
		return nil, err
	}
	return s.OpenRoom(ctx, room.RoomID)
}

// SendMessage performs the optimistic insert, pushes the message over
// the live channel and rolls the insert back when the push fails. The
// returned error on the send path is user visible and retryable.
func (s *Session) SendMessage(ctx context.Context, roomID int64, text string) (domain.Message, error) {
	if !ValidText(text) {
		return domain.Message{}, fmt.Errorf("%w: empty message", domain.ErrValidation)
	}

	s.mu.Lock()
	log := s.logs[roomID]
	s.mu.Unlock()
	if log == nil {
		return domain.Message{}, fmt.Errorf("%w: room %d not open", domain.ErrRoomNotFound, roomID)
	}

	placeholder := log.InsertOptimistic(text)
	s.render.RenderMessages(roomID, log.Messages())

	if err := s.adapter.SendMessage(roomID, s.viewer.AuthID, text); err != nil {
		log.Rollback(placeholder.ID)
		s.render.RenderMessages(roomID, log.Messages())
		return domain.Message{}, err
	}
	return placeholder, nil
}

// MarkRead marks the open room's backlog read, posting the receipt and
// then emitting the locally computed count to the aggregator. The
// receipt response body is never trusted for the count.
func (s *Session) MarkRead(ctx context.Context, roomID int64) {
	s.mu.Lock()
	log := s.logs[roomID]
	s.mu.Unlock()
	if log == nil {
		return
	}
	s.markRead(ctx, roomID, log)
}

func (s *Session) markRead(ctx context.Context, roomID int64, log *MessageLog) {
	count := log.MarkReadLocal()
	if count == 0 {
		return
	}
	if err := s.receipts.MarkRead(ctx, roomID, s.viewer.AuthID); err != nil {
		// recoverable, the next resync reconciles the ledger
		logger.Log.Warn("read receipt failed", zap.Int64("roomID", roomID), zap.Error(err))
		return
	}
	s.unread.OnMessagesRead(ctx, roomID, count)
}

// CloseRoom closes one room surface. The unread aggregator survives, it
// is session scoped, not surface scoped.
func (s *Session) CloseRoom(roomID int64) {
	if err := s.adapter.Leave(roomID); err != nil {
		logger.Log.Debug("leave on close failed", zap.Int64("roomID", roomID), zap.Error(err))
	}
	s.adapter.DetachLog(roomID)

	s.mu.Lock()
	delete(s.logs, roomID)
	s.mu.Unlock()

	if s.unread.ActiveRoom() == roomID {
		s.unread.SetActiveRoom(0)
	}
}

// Teardown ends the session at logout
func (s *Session) Teardown() {
	if err := s.adapter.Close(); err != nil {
		logger.Log.Debug("channel close failed", zap.Error(err))
	}
	s.mu.Lock()
	s.logs = make(map[int64]*MessageLog)
	s.mu.Unlock()
}
