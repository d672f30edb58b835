package app

import "cuidarmed_chat_client/internal/chat/domain"

// Renderer is the rendering surface contract. The engine only pushes
// render instructions, it never reads surface state back.
type Renderer interface {
	RenderMessages(roomID int64, msgs []domain.Message)
	RenderTyping(roomID int64, active bool)
	RenderBadge(total int)
}

// NopRenderer discards every render instruction
type NopRenderer struct{}

// RenderMessages implement Renderer
func (NopRenderer) RenderMessages(int64, []domain.Message) {}

// RenderTyping implement Renderer
func (NopRenderer) RenderTyping(int64, bool) {}

// RenderBadge implement Renderer
func (NopRenderer) RenderBadge(int) {}
