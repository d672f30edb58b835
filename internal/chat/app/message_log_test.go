package app

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

var testViewer = domain.Identity{
	AuthID:        10,
	ParticipantID: 77,
	CounterpartID: 88,
	DisplayName:   "Dr. Lima",
	Role:          "doctor",
}

func TestMessageLog_ReconcileReplacesPlaceholder(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)

	placeholder := log.InsertOptimistic("hello")
	assert.True(t, placeholder.Pending)

	confirmed := domain.Message{
		ID:           9001,
		RoomID:       5,
		SenderAuthID: testViewer.AuthID,
		Text:         "hello",
		SentAt:       placeholder.SentAt.Add(2 * time.Second),
	}
	log.Reconcile(confirmed)

	msgs := log.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, int64(9001), msgs[0].ID)
	assert.False(t, msgs[0].Pending)
	// the placeholder was already rendered as read
	assert.True(t, msgs[0].IsRead)
}

func TestMessageLog_ReconcileEarliestPlaceholderWins(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)

	first := log.InsertOptimistic("same text")
	second := log.InsertOptimistic("same text")
	assert.Less(t, first.ID, second.ID)

	log.Reconcile(domain.Message{
		ID:           9001,
		RoomID:       5,
		SenderAuthID: testViewer.AuthID,
		Text:         "same text",
		SentAt:       first.SentAt.Add(time.Second),
	})

	msgs := log.Messages()
	assert.Len(t, msgs, 2)

	var confirmedID int64
	pendingLeft := 0
	for _, m := range msgs {
		if m.Pending {
			pendingLeft++
			assert.Equal(t, second.ID, m.ID)
		} else {
			confirmedID = m.ID
		}
	}
	assert.Equal(t, 1, pendingLeft)
	assert.Equal(t, int64(9001), confirmedID)
}

func TestMessageLog_DuplicateDeliveryDropped(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)

	inbound := domain.Message{
		ID:           42,
		RoomID:       5,
		SenderAuthID: 99,
		Text:         "once",
		SentAt:       time.Now().UTC(),
	}
	log.Reconcile(inbound)
	log.Reconcile(inbound)

	assert.Len(t, log.Messages(), 1)
}

func TestMessageLog_ReconcileOutsideWindowAppends(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)

	placeholder := log.InsertOptimistic("late echo")
	log.Reconcile(domain.Message{
		ID:           9001,
		RoomID:       5,
		SenderAuthID: testViewer.AuthID,
		Text:         "late echo",
		SentAt:       placeholder.SentAt.Add(reconcileWindow + time.Second),
	})

	msgs := log.Messages()
	assert.Len(t, msgs, 2)
	assert.True(t, msgs[0].Pending)
	assert.False(t, msgs[1].Pending)
}

func TestMessageLog_OrderingAscending(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{30 * time.Second, 0, 10 * time.Second} {
		log.Reconcile(domain.Message{
			ID:           int64(100 + i),
			RoomID:       5,
			SenderAuthID: 99,
			Text:         "m",
			SentAt:       base.Add(offset),
		})
	}

	msgs := log.Messages()
	assert.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].SentAt.Before(msgs[i-1].SentAt))
	}
}

func TestMessageLog_HistoryFailureStartsEmpty(t *testing.T) {
	ctx := context.Background()
	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("History", ctx, int64(5), testViewer.AuthID, 1, 50).
		Return(nil, errors.New("boom"))

	log := NewMessageLog(5, testViewer, mockMsgRepo, 50)
	msgs := log.LoadHistory(ctx)

	assert.Empty(t, msgs)
	assert.False(t, log.Synced())
	mockMsgRepo.AssertExpectations(t)
}

func TestMessageLog_HistoryFiltersForeignRooms(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("History", ctx, int64(5), testViewer.AuthID, 1, 50).
		Return([]domain.Message{
			{ID: 1, RoomID: 5, SenderAuthID: 99, Text: "mine", SentAt: now},
			{ID: 2, RoomID: 6, SenderAuthID: 99, Text: "leaked", SentAt: now},
		}, nil)

	log := NewMessageLog(5, testViewer, mockMsgRepo, 50)
	msgs := log.LoadHistory(ctx)

	assert.Len(t, msgs, 1)
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.True(t, log.Synced())
}

func TestMessageLog_Rollback(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)

	placeholder := log.InsertOptimistic("will fail")
	log.Rollback(placeholder.ID)

	assert.Empty(t, log.Messages())
}

func TestMessageLog_IsOwn(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)

	// participant identity decides when both sides carry one
	assert.True(t, log.IsOwn(domain.Message{SenderAuthID: 999, SenderParticipantID: 77}))
	assert.False(t, log.IsOwn(domain.Message{SenderAuthID: 10, SenderParticipantID: 88}))

	// auth identity is the fallback
	assert.True(t, log.IsOwn(domain.Message{SenderAuthID: 10}))
	assert.False(t, log.IsOwn(domain.Message{SenderAuthID: 99}))

	// no sender fields at all is foreign
	assert.False(t, log.IsOwn(domain.Message{}))
}

func TestMessageLog_MarkReadLocal(t *testing.T) {
	log := NewMessageLog(5, testViewer, new(MockMessageRepository), 50)
	now := time.Now().UTC()

	log.Reconcile(domain.Message{ID: 1, RoomID: 5, SenderAuthID: 99, Text: "a", SentAt: now})
	log.Reconcile(domain.Message{ID: 2, RoomID: 5, SenderAuthID: 99, Text: "b", SentAt: now, IsRead: true})
	log.Reconcile(domain.Message{ID: 3, RoomID: 5, SenderAuthID: testViewer.AuthID, SenderParticipantID: 77, Text: "c", SentAt: now})

	assert.Equal(t, 1, log.MarkReadLocal())
	assert.Equal(t, 0, log.MarkReadLocal())

	for _, m := range log.Messages() {
		if m.SenderAuthID == 99 {
			assert.True(t, m.IsRead)
		}
	}
}

func TestValidText(t *testing.T) {
	assert.True(t, ValidText("hola"))
	assert.False(t, ValidText(""))
	assert.False(t, ValidText("   \t\n"))
}
