package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/internal/chat/repository"
	"cuidarmed_chat_client/pkg/logger"
)

// reconcileWindow is the widest clock skew tolerated between an optimistic
// placeholder and its server-confirmed echo.
const reconcileWindow = 5 * time.Second

// MessageLog keeps the ordered, de-duplicated message history of one open
// room, including optimistic placeholders awaiting server confirmation.
type MessageLog struct {
	roomID   int64
	viewer   domain.Identity
	msgRepo  repository.MessageRepository
	pageSize int

	mu         sync.Mutex
	entries    []domain.Message
	synced     bool
	lastTempID int64

	now func() time.Time
}

// NewMessageLog create the log for one room
func NewMessageLog(roomID int64, viewer domain.Identity, msgRepo repository.MessageRepository, pageSize int) *MessageLog {
	return &MessageLog{
		roomID:   roomID,
		viewer:   viewer,
		msgRepo:  msgRepo,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// RoomID the room this log belongs to
func (l *MessageLog) RoomID() int64 { return l.roomID }

// LoadHistory fetches the persisted history. A fetch or parse failure
// never blocks the caller: the log stays empty and Synced reports false
// so the surface can offer a retry.
func (l *MessageLog) LoadHistory(ctx context.Context) []domain.Message {
	msgs, err := l.msgRepo.History(ctx, l.roomID, l.viewer.AuthID, 1, l.pageSize)
	if err != nil {
		logger.Log.Warn("history load failed, starting empty",
			zap.Int64("roomID", l.roomID), zap.Error(err))
		l.mu.Lock()
		l.entries = nil
		l.synced = false
		l.mu.Unlock()
		return nil
	}

	kept := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		// the history endpoint has leaked cross-room rows before
		if m.RoomID != l.roomID {
			continue
		}
		domain.DeriveParticipant(&m, l.viewer)
		kept = append(kept, m)
	}
	sortBySentAt(kept)

	l.mu.Lock()
	l.entries = kept
	l.synced = true
	l.mu.Unlock()
	return l.snapshot()
}

// Synced reports whether the last history load succeeded
func (l *MessageLog) Synced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.synced
}

// InsertOptimistic appends a placeholder visible before network
// confirmation. The placeholder id is timestamp derived; a second insert
// in the same millisecond bumps past the previous id.
func (l *MessageLog) InsertOptimistic(text string) domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	tempID := l.now().UnixMilli()
	if tempID <= l.lastTempID {
		tempID = l.lastTempID + 1
	}
	l.lastTempID = tempID

	m := domain.Message{
		ID:                  tempID,
		RoomID:              l.roomID,
		SenderAuthID:        l.viewer.AuthID,
		SenderParticipantID: l.viewer.ParticipantID,
		Text:                text,
		SentAt:              l.now().UTC(),
		IsRead:              true,
		Pending:             true,
	}
	l.entries = append(l.entries, m)
	return m
}

// Rollback removes the placeholder with the given temp id, the send path
// calls it when the transport rejects the message.
func (l *MessageLog) Rollback(tempID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.Pending && e.ID == tempID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Reconcile folds a confirmed message from the live channel into the log.
//
// A placeholder with identical text, matching sender and a sent time
// within the reconcile window is replaced in place, keeping its display
// position. A message whose confirmed id is already present is a
// duplicate delivery and is dropped. Everything else appends in timestamp
// order. With several plausible placeholders the earliest inserted one
// wins, deterministically.
func (l *MessageLog) Reconcile(inbound domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if inbound.ID > 0 {
		for _, e := range l.entries {
			if !e.Pending && e.ID == inbound.ID {
				return
			}
		}
	}

	match := -1
	for i, e := range l.entries {
		if !e.Pending || e.Text != inbound.Text || !sameSender(e, inbound) {
			continue
		}
		delta := inbound.SentAt.Sub(e.SentAt)
		if delta < 0 {
			delta = -delta
		}
		if delta >= reconcileWindow {
			continue
		}
		// temp ids are monotonic, smallest id = earliest placeholder
		if match < 0 || l.entries[i].ID < l.entries[match].ID {
			match = i
		}
	}

	if match >= 0 {
		confirmed := inbound
		confirmed.Pending = false
		confirmed.IsRead = l.entries[match].IsRead
		l.entries[match] = confirmed
		return
	}

	inbound.Pending = false
	l.entries = append(l.entries, inbound)
	sortBySentAt(l.entries)
}

// IsOwn reports whether the viewer authored the message. Participant
// identities decide when both sides carry one, the auth identity is the
// fallback; a message with neither sender field is foreign.
func (l *MessageLog) IsOwn(m domain.Message) bool {
	return isOwn(m, l.viewer)
}

// MarkReadLocal marks every foreign unread entry read and returns how
// many were marked. The read-receipt flow trusts this local count, not
// the service response.
func (l *MessageLog) MarkReadLocal() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for i, e := range l.entries {
		if e.IsRead {
			continue
		}
		if isOwn(e, l.viewer) {
			continue
		}
		l.entries[i].IsRead = true
		count++
	}
	return count
}

// Messages returns a snapshot in display order
func (l *MessageLog) Messages() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *MessageLog) snapshot() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *MessageLog) snapshotLocked() []domain.Message {
	out := make([]domain.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

func isOwn(m domain.Message, viewer domain.Identity) bool {
	if m.SenderParticipantID > 0 && viewer.ParticipantID > 0 {
		return m.SenderParticipantID == viewer.ParticipantID
	}
	if m.SenderAuthID > 0 {
		return m.SenderAuthID == viewer.AuthID
	}
	return false
}

func sameSender(a, b domain.Message) bool {
	if a.SenderAuthID > 0 && a.SenderAuthID == b.SenderAuthID {
		return true
	}
	return a.SenderParticipantID > 0 && a.SenderParticipantID == b.SenderParticipantID
}

func sortBySentAt(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}

// ValidText reports whether a message body is sendable
func ValidText(text string) bool {
	return strings.TrimSpace(text) != ""
}
