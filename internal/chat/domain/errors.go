package domain

import "errors"

// Error taxonomy for the chat engine. Callers branch with errors.Is.
var (
	// ErrValidation malformed ids or empty payload, rejected before any network call
	ErrValidation = errors.New("validation failed")

	// ErrNotReady outbound operation while the live channel is not connected
	ErrNotReady = errors.New("live channel not ready")

	// ErrTransientNetwork timeout or connectivity failure on a collaborator call
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrRoomNotFound no room matches the lookup
	ErrRoomNotFound = errors.New("room not found")

	// ErrStateDesync aggregator total did not move after a read event that should have moved it
	ErrStateDesync = errors.New("unread state desync")

	// ErrChannelClosed the adapter was explicitly closed, terminal state
	ErrChannelClosed = errors.New("live channel closed")
)
