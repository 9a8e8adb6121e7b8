package session

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/signaling"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"
)

var (
	errDialFailed = errors.New("dial failed")
	errConnReset  = errors.New("connection reset")
)

// fakePC implements webrtc.PeerConnection for tests. closeCount is
// guarded because loop-based tests read it while the dispatch loop runs.
type fakePC struct {
	closeMu    sync.Mutex
	closeCount int

	remote     *pion.SessionDescription
	local      *pion.SessionDescription
	candidates []pion.ICECandidateInit

	onCandidate func(pion.ICECandidateInit)
	onState     func(pion.PeerConnectionState)
	onTrack     func(webrtc.Track)

	candidateAttached int
	stateAttached     int
	trackAttached     int

	failRemote    bool
	failAnswer    bool
	failCandidate bool
}

func (f *fakePC) SetRemoteDescription(d pion.SessionDescription) error {
	if f.failRemote {
		return errors.New("remote description rejected")
	}
	f.remote = &d
	return nil
}

func (f *fakePC) CreateAnswer() (pion.SessionDescription, error) {
	if f.failAnswer {
		return pion.SessionDescription{}, errors.New("answer failed")
	}
	return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "v=0\r\nanswer"}, nil
}

func (f *fakePC) SetLocalDescription(d pion.SessionDescription) error {
	f.local = &d
	return nil
}

func (f *fakePC) AddICECandidate(init pion.ICECandidateInit) error {
	if f.failCandidate {
		return errors.New("candidate rejected")
	}
	f.candidates = append(f.candidates, init)
	return nil
}

func (f *fakePC) OnICECandidate(fn func(pion.ICECandidateInit)) {
	f.onCandidate = fn
	f.candidateAttached++
}

func (f *fakePC) OnConnectionStateChange(fn func(pion.PeerConnectionState)) {
	f.onState = fn
	f.stateAttached++
}

func (f *fakePC) OnTrack(fn func(webrtc.Track)) {
	f.onTrack = fn
	f.trackAttached++
}

func (f *fakePC) Close() error {
	f.closeMu.Lock()
	defer f.closeMu.Unlock()
	f.closeCount++
	return nil
}

func (f *fakePC) closes() int {
	f.closeMu.Lock()
	defer f.closeMu.Unlock()
	return f.closeCount
}

// fakeFactory hands out fakePCs and remembers them.
type fakeFactory struct {
	mu      sync.Mutex
	created []*fakePC
	fail    bool
}

func (f *fakeFactory) new() (webrtc.PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("factory failure")
	}
	pc := &fakePC{}
	f.created = append(f.created, pc)
	return pc, nil
}

func (f *fakeFactory) snapshot() []*fakePC {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakePC(nil), f.created...)
}

// fakeChannel implements Channel and records outbound traffic.
type fakeChannel struct {
	mu     sync.Mutex
	sent   []*signaling.Message
	closed int
}

func (f *fakeChannel) Send(msg *signaling.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeChannel) sentByType(t string) []*signaling.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*signaling.Message
	for _, m := range f.sent {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeChannel) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// recorder implements Notifier. Status changes are mirrored onto a
// buffered channel so tests can synchronize with the dispatch loop.
type recorder struct {
	mu       sync.Mutex
	statuses []Status
	rosters  [][]int
	phases   map[int]Phase
	logs     []string

	statusCh chan Status
}

func newRecorder() *recorder {
	return &recorder{
		phases:   make(map[int]Phase),
		statusCh: make(chan Status, 16),
	}
}

func (r *recorder) Status(s Status) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
	r.statusCh <- s
}

func (r *recorder) Roster(ids []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rosters = append(r.rosters, ids)
}

func (r *recorder) PeerPhase(id int, p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases[id] = p
}

func (r *recorder) Logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}

func (r *recorder) statusHistory() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func (r *recorder) logCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}

func candidateInitForTest() pion.ICECandidateInit {
	return pion.ICECandidateInit{Candidate: "candidate:0 1 udp 1 198.51.100.7 9 typ host"}
}

// fakeTrack implements webrtc.Track.
type fakeTrack struct {
	id    string
	kind  string
	codec string
}

func (f *fakeTrack) ID() string    { return f.id }
func (f *fakeTrack) Kind() string  { return f.kind }
func (f *fakeTrack) Codec() string { return f.codec }
func (f *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return nil, nil, io.EOF
}

// recordingSink implements MediaSink.
type recordingSink struct {
	mu      sync.Mutex
	played  []int
	stopped []int
	stopAll int
}

func (s *recordingSink) Play(id int, _ webrtc.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, id)
}

func (s *recordingSink) Stop(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = append(s.stopped, id)
}

func (s *recordingSink) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAll++
}
