// Package media drains RTP from the active remote track. Rendering and
// decode live outside this client; the sink's job is to keep the track
// flowing and account for what arrived.
package media

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"
)

// Stats describes one streamer's received media.
type Stats struct {
	StreamerID int
	Kind       string
	Codec      string
	Packets    uint64
	Bytes      uint64
	Active     bool
}

// Sink surfaces a single active stream slot: playing a new track replaces
// whatever was playing before.
type Sink struct {
	mu      sync.Mutex
	current *slot
	stats   map[int]*Stats
}

type slot struct {
	streamerID int
	stop       chan struct{}
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{stats: make(map[int]*Stats)}
}

// Play makes the given track the active stream. The previous reader, if
// any, is stopped first.
func (s *Sink) Play(streamerID int, track webrtc.Track) {
	s.mu.Lock()
	if s.current != nil {
		close(s.current.stop)
	}
	sl := &slot{streamerID: streamerID, stop: make(chan struct{})}
	s.current = sl

	st, ok := s.stats[streamerID]
	if !ok {
		st = &Stats{StreamerID: streamerID}
		s.stats[streamerID] = st
	}
	st.Kind = track.Kind()
	st.Codec = track.Codec()
	s.mu.Unlock()

	go s.drain(sl, track)
}

func (s *Sink) drain(sl *slot, track webrtc.Track) {
	for {
		select {
		case <-sl.stop:
			return
		default:
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			// Track ended (peer connection closed or stream stopped).
			slog.Debug("track reader done", "streamer", sl.streamerID, "err", err)
			s.mu.Lock()
			if s.current == sl {
				s.current = nil
			}
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if st := s.stats[sl.streamerID]; st != nil {
			st.Packets++
			st.Bytes += uint64(pkt.MarshalSize())
		}
		s.mu.Unlock()
	}
}

// Stop drops the active stream if it belongs to the given streamer.
func (s *Sink) Stop(streamerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.streamerID == streamerID {
		close(s.current.stop)
		s.current = nil
	}
}

// StopAll drops the active stream unconditionally.
func (s *Sink) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		close(s.current.stop)
		s.current = nil
	}
}

// Active returns the streamer id of the active stream, or false.
func (s *Sink) Active() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, false
	}
	return s.current.streamerID, true
}

// Snapshot returns cumulative stats for every streamer that ever played,
// sorted by id.
func (s *Sink) Snapshot() []Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Stats, 0, len(s.stats))
	for _, st := range s.stats {
		cp := *st
		cp.Active = s.current != nil && s.current.streamerID == st.StreamerID
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StreamerID < out[j].StreamerID })
	return out
}
