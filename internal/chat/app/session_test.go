package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cuidarmed_chat_client/internal/chat/domain"
)

func newTestSession(t *testing.T, transport *MockLiveTransport, mockRoomRepo *MockRoomRepository, mockMsgRepo *MockMessageRepository, mockReceipts *MockReadReceiptRepository) (*Session, *captureRenderer) {
	t.Helper()
	render := newCaptureRenderer()
	registry := NewRoomRegistry(testViewer, mockRoomRepo)
	unread := NewUnreadAggregator(testViewer, mockRoomRepo, render)
	adapter := NewChannelAdapter(transport, testViewer, unread, render)
	return NewSession(testViewer, registry, unread, adapter, mockMsgRepo, mockReceipts, render, 50), render
}

func TestSession_OpenRoomLoadsJoinsAndMarksRead(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	transport := new(MockLiveTransport)
	transport.On("Dial", mock.Anything).Return(nil)
	transport.On("Send", mock.Anything).Return(nil)

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", mock.Anything, testViewer.AuthID).Return([]domain.Room{}, nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("History", ctx, int64(5), testViewer.AuthID, 1, 50).
		Return([]domain.Message{
			{ID: 1, RoomID: 5, SenderAuthID: 99, Text: "backlog", SentAt: now},
		}, nil)

	mockReceipts := new(MockReadReceiptRepository)
	mockReceipts.On("MarkRead", ctx, int64(5), testViewer.AuthID).Return(nil)

	session, _ := newTestSession(t, transport, mockRoomRepo, mockMsgRepo, mockReceipts)
	assert.NoError(t, session.Start(ctx))

	log, err := session.OpenRoom(ctx, 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), session.Unread().ActiveRoom())
	assert.Len(t, log.Messages(), 1)
	assert.True(t, log.Messages()[0].IsRead)

	mockReceipts.AssertExpectations(t)
	mockMsgRepo.AssertExpectations(t)
}

func TestSession_SendMessageRollsBackOnTransportError(t *testing.T) {
	ctx := context.Background()

	transport := new(MockLiveTransport)
	transport.On("Dial", mock.Anything).Return(nil)
	transport.On("Send", mock.Anything).Return(errors.New("socket gone"))

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", mock.Anything, testViewer.AuthID).Return([]domain.Room{}, nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("History", ctx, int64(5), testViewer.AuthID, 1, 50).
		Return([]domain.Message{}, nil)

	session, _ := newTestSession(t, transport, mockRoomRepo, mockMsgRepo, new(MockReadReceiptRepository))
	assert.NoError(t, session.Start(ctx))

	log, err := session.OpenRoom(ctx, 5)
	assert.NoError(t, err)

	_, err = session.SendMessage(ctx, 5, "never lands")
	assert.Error(t, err)
	assert.Empty(t, log.Messages())
}

func TestSession_SendMessageValidation(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, new(MockLiveTransport), new(MockRoomRepository), new(MockMessageRepository), new(MockReadReceiptRepository))

	_, err := session.SendMessage(ctx, 5, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = session.SendMessage(ctx, 5, "room never opened")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestSession_ReceiptFailureKeepsLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	transport := new(MockLiveTransport)
	transport.On("Dial", mock.Anything).Return(nil)
	transport.On("Send", mock.Anything).Return(nil)

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", mock.Anything, testViewer.AuthID).Return([]domain.Room{
		{RoomID: 5, LastSenderID: 99, UnreadCount: 2},
	}, nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("History", ctx, int64(5), testViewer.AuthID, 1, 50).
		Return([]domain.Message{
			{ID: 1, RoomID: 5, SenderAuthID: 99, Text: "a", SentAt: now},
			{ID: 2, RoomID: 5, SenderAuthID: 99, Text: "b", SentAt: now},
		}, nil)

	mockReceipts := new(MockReadReceiptRepository)
	mockReceipts.On("MarkRead", ctx, int64(5), testViewer.AuthID).Return(errors.New("503"))

	session, _ := newTestSession(t, transport, mockRoomRepo, mockMsgRepo, mockReceipts)
	assert.NoError(t, session.Start(ctx))
	assert.Equal(t, 2, session.Unread().Total())

	_, err := session.OpenRoom(ctx, 5)
	assert.NoError(t, err)

	// the receipt never landed, the ledger still owes those two
	assert.Equal(t, 2, session.Unread().Total())
}

func TestSession_CloseRoomClearsActive(t *testing.T) {
	ctx := context.Background()

	transport := new(MockLiveTransport)
	transport.On("Dial", mock.Anything).Return(nil)
	transport.On("Send", mock.Anything).Return(nil)

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", mock.Anything, testViewer.AuthID).Return([]domain.Room{}, nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("History", ctx, int64(5), testViewer.AuthID, 1, 50).
		Return([]domain.Message{}, nil)

	session, _ := newTestSession(t, transport, mockRoomRepo, mockMsgRepo, new(MockReadReceiptRepository))
	assert.NoError(t, session.Start(ctx))

	_, err := session.OpenRoom(ctx, 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), session.Unread().ActiveRoom())

	session.CloseRoom(5)
	assert.Equal(t, int64(0), session.Unread().ActiveRoom())

	_, err = session.SendMessage(ctx, 5, "after close")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestSession_OpenRoomForAppointment(t *testing.T) {
	ctx := context.Background()

	transport := new(MockLiveTransport)
	transport.On("Dial", mock.Anything).Return(nil)
	transport.On("Send", mock.Anything).Return(nil)

	mockRoomRepo := new(MockRoomRepository)
	mockRoomRepo.On("ListRooms", mock.Anything, testViewer.AuthID).Return([]domain.Room{
		{RoomID: 7, AppointmentID: int64Ptr(300), DoctorID: 10, PatientID: 20},
	}, nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("History", ctx, int64(7), testViewer.AuthID, 1, 50).
		Return([]domain.Message{}, nil)

	session, _ := newTestSession(t, transport, mockRoomRepo, mockMsgRepo, new(MockReadReceiptRepository))
	assert.NoError(t, session.Start(ctx))

	log, err := session.OpenRoomForAppointment(ctx, 10, 20, 300)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), log.RoomID())
	mockRoomRepo.AssertNotCalled(t, "CreateRoom")
}
