package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cuidarmed_chat_client/internal/chat/domain"
)

func inboundFrom(roomID, senderID int64) domain.Message {
	return domain.Message{
		ID:           time.Now().UnixNano(),
		RoomID:       roomID,
		SenderAuthID: senderID,
		Text:         "ping",
		SentAt:       time.Now().UTC(),
	}
}

func TestUnreadAggregator_InboundRaisesBadge(t *testing.T) {
	render := newCaptureRenderer()
	agg := NewUnreadAggregator(testViewer, new(MockRoomRepository), render)

	agg.OnInboundMessage(inboundFrom(5, 99))
	agg.OnInboundMessage(inboundFrom(5, 99))
	agg.OnInboundMessage(inboundFrom(6, 99))

	assert.Equal(t, 3, agg.Total())
	assert.Equal(t, 2, agg.RoomUnread(5))
	assert.Equal(t, 1, agg.RoomUnread(6))

	badge, ok := render.lastBadge()
	assert.True(t, ok)
	assert.Equal(t, 3, badge)
}

func TestUnreadAggregator_ActiveRoomSuppressed(t *testing.T) {
	agg := NewUnreadAggregator(testViewer, new(MockRoomRepository), newCaptureRenderer())

	agg.SetActiveRoom(5)
	agg.OnInboundMessage(inboundFrom(5, 99))
	assert.Equal(t, 0, agg.Total())

	// a different room still counts
	agg.OnInboundMessage(inboundFrom(6, 99))
	assert.Equal(t, 1, agg.Total())

	agg.SetActiveRoom(0)
	agg.OnInboundMessage(inboundFrom(5, 99))
	assert.Equal(t, 2, agg.Total())
}

func TestUnreadAggregator_OwnMessagesNeverUnread(t *testing.T) {
	agg := NewUnreadAggregator(testViewer, new(MockRoomRepository), newCaptureRenderer())

	agg.OnInboundMessage(inboundFrom(5, testViewer.AuthID))
	assert.Equal(t, 0, agg.Total())
}

func TestUnreadAggregator_ReadDecrementsFlooredAtZero(t *testing.T) {
	ctx := context.Background()
	agg := NewUnreadAggregator(testViewer, new(MockRoomRepository), newCaptureRenderer())

	agg.OnInboundMessage(inboundFrom(5, 99))
	agg.OnInboundMessage(inboundFrom(5, 99))
	agg.OnInboundMessage(inboundFrom(6, 99))

	agg.OnMessagesRead(ctx, 5, 10)
	assert.Equal(t, 0, agg.RoomUnread(5))
	assert.Equal(t, 1, agg.Total())
}

func TestUnreadAggregator_TotalIsAlwaysSumOfRooms(t *testing.T) {
	ctx := context.Background()
	agg := NewUnreadAggregator(testViewer, new(MockRoomRepository), newCaptureRenderer())

	agg.OnInboundMessage(inboundFrom(5, 99))
	agg.OnInboundMessage(inboundFrom(6, 99))
	agg.OnInboundMessage(inboundFrom(7, 99))
	agg.OnMessagesRead(ctx, 6, 1)

	sum := 0
	for _, n := range agg.PerRoom() {
		sum += n
	}
	assert.Equal(t, sum, agg.Total())
}

func TestUnreadAggregator_ResyncLastSenderRule(t *testing.T) {
	ctx := context.Background()
	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", ctx, testViewer.AuthID).Return([]domain.Room{
		// last word is the viewer's, reported count is ignored
		{RoomID: 5, LastSenderID: testViewer.AuthID, UnreadCount: 4},
		// foreign last sender, count trusted
		{RoomID: 6, LastSenderID: 99, UnreadCount: 2},
		// no last sender on record, count trusted verbatim
		{RoomID: 7, UnreadCount: 3},
		{RoomID: 8, LastSenderID: 99, UnreadCount: 0},
	}, nil)

	render := newCaptureRenderer()
	agg := NewUnreadAggregator(testViewer, mockRoomRepo, render)

	assert.NoError(t, agg.Resync(ctx))
	assert.Equal(t, 0, agg.RoomUnread(5))
	assert.Equal(t, 2, agg.RoomUnread(6))
	assert.Equal(t, 3, agg.RoomUnread(7))
	assert.Equal(t, 5, agg.Total())

	badge, ok := render.lastBadge()
	assert.True(t, ok)
	assert.Equal(t, 5, badge)
	mockRoomRepo.AssertExpectations(t)
}

func TestUnreadAggregator_ResyncFailureKeepsLedger(t *testing.T) {
	ctx := context.Background()
	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", ctx, testViewer.AuthID).Return(nil, errors.New("listing down"))

	agg := NewUnreadAggregator(testViewer, mockRoomRepo, newCaptureRenderer())
	agg.OnInboundMessage(inboundFrom(5, 99))

	assert.Error(t, agg.Resync(ctx))
	assert.Equal(t, 1, agg.Total())
}

func TestUnreadAggregator_StuckTotalForcesResync(t *testing.T) {
	ctx := context.Background()
	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", ctx, testViewer.AuthID).Return([]domain.Room{
		{RoomID: 6, LastSenderID: 99, UnreadCount: 7},
	}, nil)

	agg := NewUnreadAggregator(testViewer, mockRoomRepo, newCaptureRenderer())

	// a read event that cannot move the recomputed total means the
	// ledger lost an update, the listing becomes authoritative
	agg.perRoom[5] = 2
	agg.total = 0
	agg.OnMessagesRead(ctx, 5, 2)

	assert.Equal(t, 7, agg.Total())
	assert.Equal(t, 7, agg.RoomUnread(6))
	mockRoomRepo.AssertExpectations(t)
}
