package session

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/signaling"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"
)

// All state mutation happens on the controller's dispatch loop; external
// callbacks (signaling client, pion, timers, the UI) only ever post events
// onto its queue.
type event interface{}

// Channel events carry the connect attempt that produced the channel, so
// the controller can recognize and discard events from a stale attempt.
type evtChannelOpen struct {
	attempt uint64
	ch      Channel
}

type evtChannelMessage struct {
	attempt uint64
	msg     *signaling.Message
}

type evtChannelClosed struct {
	attempt uint64
	err     error
}

type evtChannelError struct {
	attempt uint64
	err     error
}

type evtConnectTimeout struct {
	attempt uint64
}

// Peer connection events.
type evtLocalCandidate struct {
	streamerID int
	init       pion.ICECandidateInit
}

type evtPeerState struct {
	streamerID int
	state      pion.PeerConnectionState
}

type evtTrack struct {
	streamerID int
	track      webrtc.Track
}

// User commands.
type cmdConnect struct{}

type cmdSubscribe struct {
	streamerID int
}

type cmdShutdown struct {
	done chan struct{}
}
