// Package session is the consumer-side signaling core: it owns the peer
// registry, routes inbound signaling messages, drives each streamer's
// negotiation, and supervises the signaling channel lifecycle.
package session

// Status is the client connection status.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	// StatusConnectionError is terminal for one connect attempt; a fresh
	// Connect starts over at StatusConnecting.
	StatusConnectionError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusConnectionError:
		return "connection error"
	default:
		return "unknown"
	}
}
