package session

import (
	"github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"
)

// Phase is a peer's negotiation phase. It only ever advances, except that
// a failed offer exchange leaves the peer in its prior phase.
type Phase int

const (
	// PhaseIdle: the entry exists but no listeners are attached and no
	// SDP has been exchanged.
	PhaseIdle Phase = iota
	// PhaseListening: candidate/state/track listeners are attached.
	PhaseListening
	// PhaseNegotiating: the remote offer was applied and our answer sent.
	PhaseNegotiating
	// PhaseEstablished: a media track has been received.
	PhaseEstablished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseEstablished:
		return "established"
	default:
		return "unknown"
	}
}

// listenerSet tracks which callbacks have been registered on a peer
// connection, so each listener is attached at most once.
type listenerSet struct {
	candidate bool
	state     bool
	track     bool
}

// Peer is one known streamer and its owned peer connection.
type Peer struct {
	ID    int
	PC    webrtc.PeerConnection
	Phase Phase

	listeners listenerSet
}
