package app

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/internal/chat/repository"
)

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// ListRooms moke list rooms for identity
func (m *MockRoomRepository) ListRooms(ctx context.Context, authID int64) ([]domain.Room, error) {
	args := m.Called(ctx, authID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateRoom moke create room
func (m *MockRoomRepository) CreateRoom(ctx context.Context, doctorID, patientID, appointmentID int64) (*domain.Room, error) {
	args := m.Called(ctx, doctorID, patientID, appointmentID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// History moke fetch room history page
func (m *MockMessageRepository) History(ctx context.Context, roomID, authID int64, page, pageSize int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, authID, page, pageSize)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockReadReceiptRepository Mock ReadReceiptRepository
type MockReadReceiptRepository struct {
	mock.Mock
}

// MarkRead moke post read receipt
func (m *MockReadReceiptRepository) MarkRead(ctx context.Context, roomID, authID int64) error {
	args := m.Called(ctx, roomID, authID)
	return args.Error(0)
}

// MockLiveTransport Mock LiveTransport. Dial keeps the handlers so tests
// can feed frames and drops back into the adapter.
type MockLiveTransport struct {
	mock.Mock

	mu      sync.Mutex
	onFrame repository.FrameHandler
	onDrop  repository.DropHandler
}

// Dial moke dial live channel
func (m *MockLiveTransport) Dial(ctx context.Context, onFrame repository.FrameHandler, onDrop repository.DropHandler) error {
	m.mu.Lock()
	m.onFrame = onFrame
	m.onDrop = onDrop
	m.mu.Unlock()
	args := m.Called(ctx)
	return args.Error(0)
}

// Send moke push frame
func (m *MockLiveTransport) Send(frame repository.RawFrame) error {
	args := m.Called(frame)
	return args.Error(0)
}

// Close moke close channel
func (m *MockLiveTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

// FeedFrame pushes an inbound frame through the captured handler
func (m *MockLiveTransport) FeedFrame(frame repository.RawFrame) {
	m.mu.Lock()
	h := m.onFrame
	m.mu.Unlock()
	if h != nil {
		h(frame)
	}
}

// FeedDrop simulates a connection drop
func (m *MockLiveTransport) FeedDrop(err error) {
	m.mu.Lock()
	h := m.onDrop
	m.mu.Unlock()
	if h != nil {
		h(err)
	}
}

// captureRenderer records render calls for assertions
type captureRenderer struct {
	mu       sync.Mutex
	badges   []int
	messages map[int64][]domain.Message
	typing   map[int64][]bool
}

func newCaptureRenderer() *captureRenderer {
	return &captureRenderer{
		messages: make(map[int64][]domain.Message),
		typing:   make(map[int64][]bool),
	}
}

func (r *captureRenderer) RenderMessages(roomID int64, msgs []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[roomID] = msgs
}

func (r *captureRenderer) RenderTyping(roomID int64, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing[roomID] = append(r.typing[roomID], active)
}

func (r *captureRenderer) RenderBadge(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, total)
}

func (r *captureRenderer) lastBadge() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.badges) == 0 {
		return 0, false
	}
	return r.badges[len(r.badges)-1], true
}
