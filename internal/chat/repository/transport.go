package repository

import "context"

// RawFrame is one live-channel frame before normalization. Data keeps the
// payload keys exactly as the transport delivered them; alias handling
// happens in domain.NormalizeMessage, not here.
type RawFrame struct {
	Action string
	Data   map[string]interface{}
}

// FrameHandler receives every inbound frame of a live connection
type FrameHandler func(frame RawFrame)

// DropHandler is called once when an established connection is lost.
// Not called after an explicit Close.
type DropHandler func(err error)

// LiveTransport is the hosted real-time connection behind the channel
// adapter. Implemented by the websocket hub client and by redis pub/sub.
type LiveTransport interface {
	// Dial establishes the connection and starts delivering frames to
	// onFrame until the connection drops or Close is called.
	Dial(ctx context.Context, onFrame FrameHandler, onDrop DropHandler) error
	// Send writes one frame. Fails when not connected.
	Send(frame RawFrame) error
	// Close tears the connection down for good.
	Close() error
}
