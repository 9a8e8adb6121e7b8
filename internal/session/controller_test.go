package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/config"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/signaling"
)

// capturingDialer hands out fake channels and exposes the handlers the
// controller registered, so tests can inject channel events.
type capturingDialer struct {
	mu       sync.Mutex
	handlers []signaling.Handler
	channels []*fakeChannel
}

func (d *capturingDialer) dial(_ string, h signaling.Handler) Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := &fakeChannel{}
	d.handlers = append(d.handlers, h)
	d.channels = append(d.channels, ch)
	return ch
}

func (d *capturingDialer) last() (signaling.Handler, *fakeChannel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers[len(d.handlers)-1], d.channels[len(d.channels)-1]
}

func (d *capturingDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

func startController(t *testing.T, timeout time.Duration) (*Controller, *capturingDialer, *recorder, *recordingSink, *fakeFactory) {
	t.Helper()

	cfg := &config.Config{Host: "signal.test", Port: 8080, ConnectTimeout: timeout}
	factory := &fakeFactory{}
	dialer := &capturingDialer{}
	rec := newRecorder()
	sink := &recordingSink{}

	ctl := NewController(cfg, factory.new, dialer.dial, rec, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctl.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("controller loop did not stop")
		}
	})

	return ctl, dialer, rec, sink, factory
}

func waitStatus(t *testing.T, rec *recorder, want Status) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case got := <-rec.statusCh:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %v (history %v)", want, rec.statusHistory())
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectReachesConnected(t *testing.T) {
	ctl, dialer, rec, _, _ := startController(t, time.Second)

	ctl.Connect()
	waitStatus(t, rec, StatusConnecting)

	h, _ := dialer.last()
	h.HandleOpen()
	waitStatus(t, rec, StatusConnected)
}

func TestConnectWhileConnectingIsNoop(t *testing.T) {
	ctl, dialer, rec, _, _ := startController(t, time.Second)

	ctl.Connect()
	waitStatus(t, rec, StatusConnecting)
	ctl.Connect()

	// Give the second command time to be dispatched.
	time.Sleep(20 * time.Millisecond)
	if dialer.dials() != 1 {
		t.Errorf("dialed %d times, want 1", dialer.dials())
	}
}

func TestConnectTimeoutFiresExactlyOnce(t *testing.T) {
	_, dialer, rec, _ := startControllerAndConnect(t, 30*time.Millisecond)

	waitStatus(t, rec, StatusConnectionError)

	// A slow open racing in after the timeout must be treated as stale:
	// no status change, and the channel is aborted.
	h, ch := dialer.last()
	h.HandleOpen()
	time.Sleep(30 * time.Millisecond)

	history := rec.statusHistory()
	errCount := 0
	for _, s := range history {
		if s == StatusConnectionError {
			errCount++
		}
		if s == StatusConnected {
			t.Errorf("late open was adopted; history %v", history)
		}
	}
	if errCount != 1 {
		t.Errorf("ConnectionError surfaced %d times, want 1 (history %v)", errCount, history)
	}
	if ch.closeCount() == 0 {
		t.Error("pending channel was not closed")
	}
}

func TestStaleCloseAfterTimeoutKeepsConnectionError(t *testing.T) {
	_, dialer, rec, _ := startControllerAndConnect(t, 30*time.Millisecond)

	waitStatus(t, rec, StatusConnectionError)

	// The aborted channel's pumps are still winding down: a late open
	// races in, then the socket we just closed reports its closure.
	// Neither may move the status off ConnectionError.
	h, _ := dialer.last()
	h.HandleOpen()
	h.HandleClose(nil)
	time.Sleep(30 * time.Millisecond)

	history := rec.statusHistory()
	if history[len(history)-1] != StatusConnectionError {
		t.Errorf("status history = %v, want it to end in ConnectionError", history)
	}
	for _, s := range history {
		if s == StatusConnected || s == StatusDisconnected {
			t.Errorf("stale channel event changed the status (history %v)", history)
		}
	}
}

func startControllerAndConnect(t *testing.T, timeout time.Duration) (*Controller, *capturingDialer, *recorder, *recordingSink) {
	t.Helper()
	ctl, dialer, rec, sink, _ := startController(t, timeout)
	ctl.Connect()
	waitStatus(t, rec, StatusConnecting)
	return ctl, dialer, rec, sink
}

func TestConnectErrorSurfaces(t *testing.T) {
	_, dialer, rec, _ := startControllerAndConnect(t, time.Second)

	h, _ := dialer.last()
	h.HandleError(errDialFailed)
	waitStatus(t, rec, StatusConnectionError)

	// The armed timeout must not produce a second transition later.
	time.Sleep(30 * time.Millisecond)
	history := rec.statusHistory()
	count := 0
	for _, s := range history {
		if s == StatusConnectionError {
			count++
		}
	}
	if count != 1 {
		t.Errorf("ConnectionError surfaced %d times, want 1", count)
	}
}

func TestConnectTogglesToDisconnect(t *testing.T) {
	ctl, dialer, rec, sink, factory := startController(t, time.Second)

	ctl.Connect()
	waitStatus(t, rec, StatusConnecting)
	h, ch := dialer.last()
	h.HandleOpen()
	waitStatus(t, rec, StatusConnected)

	h.HandleMessage(&signaling.Message{Type: signaling.MessageTypeConnect, ID: 7, Streamers: []int{1, 2}})
	waitFor(t, "roster", func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.rosters) > 0
	})

	// Connect while connected means disconnect.
	ctl.Connect()
	waitStatus(t, rec, StatusDisconnected)

	if ch.closeCount() == 0 {
		t.Error("signaling channel not closed on disconnect")
	}
	waitFor(t, "peers closed", func() bool {
		pcs := factory.snapshot()
		for _, pc := range pcs {
			if pc.closes() == 0 {
				return false
			}
		}
		return len(pcs) == 2
	})
	sink.mu.Lock()
	stopAll := sink.stopAll
	sink.mu.Unlock()
	if stopAll == 0 {
		t.Error("media sink not stopped on disconnect")
	}
}

func TestChannelCloseCascadesToRegistry(t *testing.T) {
	ctl, dialer, rec, _, factory := startController(t, time.Second)

	ctl.Connect()
	waitStatus(t, rec, StatusConnecting)
	h, _ := dialer.last()
	h.HandleOpen()
	waitStatus(t, rec, StatusConnected)

	h.HandleMessage(&signaling.Message{Type: signaling.MessageTypeNewStreamer, StreamerID: 3})
	waitFor(t, "peer creation", func() bool { return len(factory.snapshot()) == 1 })

	h.HandleClose(errConnReset)
	waitStatus(t, rec, StatusDisconnected)

	waitFor(t, "peer teardown", func() bool { return factory.snapshot()[0].closes() == 1 })
}

func TestReconnectAfterErrorStartsFresh(t *testing.T) {
	ctl, dialer, rec, _ := startControllerAndConnect(t, 20*time.Millisecond)

	waitStatus(t, rec, StatusConnectionError)

	ctl.Connect()
	waitStatus(t, rec, StatusConnecting)
	if dialer.dials() != 2 {
		t.Errorf("dialed %d times, want 2", dialer.dials())
	}

	h, _ := dialer.last()
	h.HandleOpen()
	waitStatus(t, rec, StatusConnected)
}

func TestTrackEstablishesPeer(t *testing.T) {
	// Synchronous handler-level check, no loop involved.
	ctl, _, _, _, sink := newRoutedController()

	ctl.route(&signaling.Message{Type: signaling.MessageTypeNewStreamer, StreamerID: 5})
	ctl.route(offerMessage(5))
	ctl.handleTrack(evtTrack{streamerID: 5, track: &fakeTrack{id: "v0", kind: "video", codec: "video/VP8"}})

	p, _ := ctl.reg.Get(5)
	if p.Phase != PhaseEstablished {
		t.Errorf("phase = %v, want established", p.Phase)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.played) != 1 || sink.played[0] != 5 {
		t.Errorf("sink plays = %v, want [5]", sink.played)
	}
}

func TestShutdownStopsLoop(t *testing.T) {
	ctl, dialer, rec, _, _ := startController(t, time.Second)

	ctl.Connect()
	waitStatus(t, rec, StatusConnecting)

	ctl.Shutdown()

	_, ch := dialer.last()
	if ch.closeCount() == 0 {
		t.Error("channel not closed on shutdown")
	}
}
