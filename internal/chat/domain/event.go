package domain

// EventKind tags an inbound live-channel event
type EventKind string

const (
	// MessageReceived a chat message delivered by the live channel
	MessageReceived EventKind = "message_received"
	// TypingStarted counterpart started typing
	TypingStarted EventKind = "typing_started"
	// TypingStopped counterpart stopped typing
	TypingStopped EventKind = "typing_stopped"
)

// Live-channel frame actions on the wire
const (
	// ActionJoin join a room
	ActionJoin = "join_room"
	// ActionLeave leave a room
	ActionLeave = "leave_room"
	// ActionSendMessage send a chat message
	ActionSendMessage = "send_message"
	// ActionMessage inbound chat message notify
	ActionMessage = "new_message"
	// ActionTyping inbound typing notify
	ActionTyping = "typing"
	// ActionStopTyping inbound stopped-typing notify
	ActionStopTyping = "stop_typing"
)

// InboundEvent is the single normalized shape every live-channel delivery
// is dispatched as, so the log/aggregator logic is exercised identically
// by live traffic and by a test harness feeding synthetic events.
type InboundEvent struct {
	Kind    EventKind
	Message Message
	UserID  int64
}
