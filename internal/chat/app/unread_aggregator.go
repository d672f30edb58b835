package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/internal/chat/repository"
	errprocess "cuidarmed_chat_client/pkg/err"
	"cuidarmed_chat_client/pkg/logger"
)

// UnreadAggregator is the single source of truth for the unread badge.
// It lives for the whole session, across surface open/close.
//
// The total is always recomputed as the sum over the per-room map, never
// incremented on its own, so the aggregate cannot drift from the ledger.
type UnreadAggregator struct {
	viewer   domain.Identity
	roomRepo repository.RoomRepository
	render   Renderer

	mu      sync.Mutex
	perRoom map[int64]int
	active  int64
	total   int
}

// NewUnreadAggregator create the aggregator for one session
func NewUnreadAggregator(viewer domain.Identity, roomRepo repository.RoomRepository, render Renderer) *UnreadAggregator {
	if render == nil {
		render = NopRenderer{}
	}
	return &UnreadAggregator{
		viewer:   viewer,
		roomRepo: roomRepo,
		render:   render,
		perRoom:  make(map[int64]int),
	}
}

// SetActiveRoom marks the room whose surface is currently open; zero
// clears it. While active, inbound messages for that room count as read
// live and never raise its unread count.
func (a *UnreadAggregator) SetActiveRoom(roomID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = roomID
}

// ActiveRoom the currently open room, zero when none
func (a *UnreadAggregator) ActiveRoom() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// OnInboundMessage feeds one live-channel delivery into the ledger
func (a *UnreadAggregator) OnInboundMessage(m domain.Message) {
	a.mu.Lock()
	if m.RoomID == a.active {
		a.mu.Unlock()
		return
	}
	if a.viewer.OwnsAuth(m.SenderAuthID) {
		// own messages are never unread
		a.mu.Unlock()
		return
	}
	a.perRoom[m.RoomID]++
	a.recomputeLocked()
	total := a.total
	a.mu.Unlock()

	a.render.RenderBadge(total)
}

// OnMessagesRead applies a local messages-read event, floored at zero.
// A read event that should have moved the total but did not means the
// ledger lost an update somewhere; the listing is then re-fetched as the
// authoritative state instead of trusting the local map.
func (a *UnreadAggregator) OnMessagesRead(ctx context.Context, roomID int64, count int) {
	a.mu.Lock()
	before := a.total
	prior := a.perRoom[roomID]

	next := prior - count
	if next < 0 {
		next = 0
	}
	if next == 0 {
		delete(a.perRoom, roomID)
	} else {
		a.perRoom[roomID] = next
	}
	a.recomputeLocked()
	total := a.total
	desync := count > 0 && prior > 0 && total == before
	a.mu.Unlock()

	if desync {
		logger.Log.Warn("unread total did not move after read event, resyncing",
			zap.Int64("roomID", roomID), zap.Int("count", count), zap.Error(domain.ErrStateDesync))
		if err := a.Resync(ctx); err != nil {
			logger.Log.Errorf("unread resync failed:", err)
		}
		return
	}
	a.render.RenderBadge(total)
}

// Resync replaces the whole ledger from a fresh rooms listing.
//
// A room whose last sender is the viewer contributes zero no matter what
// the listing reports, the viewer's own last message cannot be unread.
// When the listing carries no last sender its reported count is trusted
// verbatim. On failure the previous ledger stays in place.
func (a *UnreadAggregator) Resync(ctx context.Context) error {
	rooms, err := a.roomRepo.ListRooms(ctx, a.viewer.AuthID)
	if err != nil {
		return errprocess.Wrap("unread resync list rooms", err)
	}

	fresh := make(map[int64]int, len(rooms))
	for _, room := range rooms {
		if room.LastSenderID > 0 && room.LastSenderID == a.viewer.AuthID {
			continue
		}
		if room.UnreadCount > 0 {
			fresh[room.RoomID] = room.UnreadCount
		}
	}

	a.mu.Lock()
	a.perRoom = fresh
	a.recomputeLocked()
	total := a.total
	a.mu.Unlock()

	a.render.RenderBadge(total)
	return nil
}

// Total the badge value
func (a *UnreadAggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// RoomUnread the ledger entry for one room
func (a *UnreadAggregator) RoomUnread(roomID int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.perRoom[roomID]
}

// PerRoom a copy of the whole ledger
func (a *UnreadAggregator) PerRoom() map[int64]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int64]int, len(a.perRoom))
	for k, v := range a.perRoom {
		out[k] = v
	}
	return out
}

func (a *UnreadAggregator) recomputeLocked() {
	sum := 0
	for _, n := range a.perRoom {
		sum += n
	}
	a.total = sum
}
