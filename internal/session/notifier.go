package session

import "github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"

// Notifier is the presentation collaborator. Every method is called from
// the controller's dispatch loop and must not block.
type Notifier interface {
	// Status reports a connection status change.
	Status(status Status)
	// Roster reports the current set of known streamer ids, sorted.
	Roster(ids []int)
	// PeerPhase reports a negotiation phase change for one streamer.
	PeerPhase(streamerID int, phase Phase)
	// Logf appends one line to the human-readable log feed.
	Logf(format string, args ...any)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Status(Status)        {}
func (NopNotifier) Roster([]int)         {}
func (NopNotifier) PeerPhase(int, Phase) {}
func (NopNotifier) Logf(string, ...any)  {}

// MediaSink is the rendering collaborator: it receives the active media
// track. The client surfaces a single active stream slot.
type MediaSink interface {
	// Play makes the given track the active stream, replacing any
	// previous one.
	Play(streamerID int, track webrtc.Track)
	// Stop drops the active stream if it belongs to the given streamer.
	Stop(streamerID int)
	// StopAll drops the active stream unconditionally.
	StopAll()
}

// NopSink discards all tracks.
type NopSink struct{}

func (NopSink) Play(int, webrtc.Track) {}
func (NopSink) Stop(int)               {}
func (NopSink) StopAll()               {}
