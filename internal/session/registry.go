package session

import (
	"sort"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"
)

// Registry owns the set of known streamers. It is only ever touched from
// the controller's dispatch loop, so it carries no locking.
type Registry struct {
	factory webrtc.Factory
	peers   map[int]*Peer
}

// NewRegistry creates an empty registry backed by the given peer
// connection factory.
func NewRegistry(factory webrtc.Factory) *Registry {
	return &Registry{
		factory: factory,
		peers:   make(map[int]*Peer),
	}
}

// Upsert returns the entry for a streamer, creating it with a fresh peer
// connection if absent. The second return reports whether an entry was
// created.
func (r *Registry) Upsert(streamerID int) (*Peer, bool, error) {
	if p, ok := r.peers[streamerID]; ok {
		return p, false, nil
	}

	pc, err := r.factory()
	if err != nil {
		return nil, false, NewPeerError("create peer connection", streamerID, err)
	}

	p := &Peer{ID: streamerID, PC: pc, Phase: PhaseIdle}
	r.peers[streamerID] = p
	return p, true, nil
}

// Get returns the entry for a streamer, if known.
func (r *Registry) Get(streamerID int) (*Peer, bool) {
	p, ok := r.peers[streamerID]
	return p, ok
}

// Remove closes the streamer's peer connection and discards the entry.
// Removing an unknown id is a no-op. The connection is closed before the
// entry disappears from the map, so the two are atomic to the single
// control flow.
func (r *Registry) Remove(streamerID int) bool {
	p, ok := r.peers[streamerID]
	if !ok {
		return false
	}
	p.PC.Close()
	delete(r.peers, streamerID)
	return true
}

// Clear closes every peer connection and empties the registry.
func (r *Registry) Clear() {
	for id, p := range r.peers {
		p.PC.Close()
		delete(r.peers, id)
	}
}

// IDs returns a sorted snapshot of known streamer ids.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len reports how many streamers are known.
func (r *Registry) Len() int {
	return len(r.peers)
}
