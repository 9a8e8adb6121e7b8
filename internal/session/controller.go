package session

import (
	"context"
	"log/slog"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/config"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/signaling"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"
)

// Channel is the signaling transport as the controller consumes it.
// *signaling.Client satisfies it.
type Channel interface {
	Send(*signaling.Message) error
	Close()
}

// Dialer opens a Channel to the given URL. Lifecycle events and inbound
// messages are delivered through the handler after Dial returns.
type Dialer func(url string, h signaling.Handler) Channel

// DefaultDialer dials through the real WebSocket client.
func DefaultDialer(url string, h signaling.Handler) Channel {
	c := signaling.NewClient(url, h)
	c.Connect()
	return c
}

// Controller supervises one signaling session: channel lifecycle, the
// peer registry, and per-streamer negotiation. All of its state is
// confined to the Run loop goroutine.
type Controller struct {
	cfg    *config.Config
	dial   Dialer
	reg    *Registry
	notify Notifier
	sink   MediaSink

	events chan event

	status  Status
	ch      Channel
	attempt uint64
	timer   *time.Timer

	// Assigned by the server in the connect message.
	clientID   int
	hasSession bool
}

// NewController assembles a controller. A nil notifier or sink is
// replaced with a no-op implementation.
func NewController(cfg *config.Config, factory webrtc.Factory, dial Dialer, notify Notifier, sink MediaSink) *Controller {
	if notify == nil {
		notify = NopNotifier{}
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Controller{
		cfg:    cfg,
		dial:   dial,
		reg:    NewRegistry(factory),
		notify: notify,
		sink:   sink,
		events: make(chan event, 256),
		status: StatusDisconnected,
	}
}

// Run consumes the event queue until the context is cancelled or
// Shutdown is called. It must be running before Connect or Subscribe
// have any effect.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return
		case e := <-c.events:
			if c.dispatch(e) {
				return
			}
		}
	}
}

// Connect toggles the session: it starts a connect attempt when idle and
// disconnects when already connected.
func (c *Controller) Connect() {
	c.post(cmdConnect{})
}

// Subscribe asks the given streamer to start sending media.
func (c *Controller) Subscribe(streamerID int) {
	c.post(cmdSubscribe{streamerID: streamerID})
}

// Shutdown tears the session down and stops the Run loop. It returns
// after the loop has exited.
func (c *Controller) Shutdown() {
	done := make(chan struct{})
	c.post(cmdShutdown{done: done})
	<-done
}

// post hands an event to the dispatch loop. Events are dropped rather
// than blocking a pion or websocket callback goroutine on a full queue.
func (c *Controller) post(e event) {
	select {
	case c.events <- e:
	default:
		slog.Warn("session event queue full, dropping event")
	}
}

// dispatch handles exactly one event. It reports whether the loop should
// stop.
func (c *Controller) dispatch(e event) bool {
	switch e := e.(type) {
	case cmdConnect:
		c.handleConnectCmd()
	case cmdSubscribe:
		c.handleSubscribe(e.streamerID)
	case cmdShutdown:
		c.teardown()
		close(e.done)
		return true

	case evtChannelOpen:
		c.handleChannelOpen(e)
	case evtChannelMessage:
		if e.attempt == c.attempt {
			c.route(e.msg)
		}
	case evtChannelClosed:
		c.handleChannelClosed(e)
	case evtChannelError:
		c.handleChannelError(e)
	case evtConnectTimeout:
		c.handleConnectTimeout(e)

	case evtLocalCandidate:
		c.handleLocalCandidate(e)
	case evtPeerState:
		c.handlePeerState(e)
	case evtTrack:
		c.handleTrack(e)

	default:
		slog.Warn("unhandled session event", "event", e)
	}
	return false
}

func (c *Controller) handleConnectCmd() {
	switch c.status {
	case StatusConnecting:
		// A connect attempt is already in flight.
		return

	case StatusConnected:
		// Connect acts as a toggle: tear the session down.
		c.disconnect()
		return
	}

	c.attempt++
	attempt := c.attempt
	c.setStatus(StatusConnecting)
	c.notify.Logf("connecting to %s", c.cfg.WebSocketURL())

	h := &channelHandler{ctl: c, attempt: attempt}
	h.ch = c.dial(c.cfg.WebSocketURL(), h)

	c.ch = h.ch
	c.timer = time.AfterFunc(c.cfg.ConnectTimeout, func() {
		c.post(evtConnectTimeout{attempt: attempt})
	})
}

func (c *Controller) disconnect() {
	c.attempt++ // invalidate events still in flight from the old channel
	c.stopTimer()
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	c.clearPeers()
	c.hasSession = false
	c.setStatus(StatusDisconnected)
	c.notify.Logf("disconnected")
}

func (c *Controller) handleChannelOpen(e evtChannelOpen) {
	if e.attempt != c.attempt || c.status != StatusConnecting {
		// A stale open, typically one racing in after the connect
		// timeout already fired. Abort it instead of adopting it.
		slog.Info("closing stale signaling channel", "attempt", e.attempt)
		if e.ch != nil {
			e.ch.Close()
		}
		return
	}
	c.stopTimer()
	c.setStatus(StatusConnected)
	c.notify.Logf("signaling channel open")
}

func (c *Controller) handleChannelClosed(e evtChannelClosed) {
	if e.attempt != c.attempt {
		return
	}
	if e.err != nil {
		c.notify.Logf("signaling channel closed: %v", e.err)
	} else {
		c.notify.Logf("signaling channel closed")
	}
	c.stopTimer()
	c.ch = nil
	// Closure cascades to the registry: a peer connection is never left
	// open once its signaling session is gone.
	c.clearPeers()
	c.hasSession = false
	c.setStatus(StatusDisconnected)
}

func (c *Controller) handleChannelError(e evtChannelError) {
	if e.attempt != c.attempt {
		return
	}
	c.stopTimer()
	c.ch = nil
	c.notify.Logf("signaling connection failed: %v", e.err)
	c.setStatus(StatusConnectionError)
}

func (c *Controller) handleConnectTimeout(e evtConnectTimeout) {
	if e.attempt != c.attempt || c.status != StatusConnecting {
		return
	}
	c.attempt++ // invalidate events still in flight from the aborted channel
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	c.notify.Logf("%v (after %s)", ErrConnectTimeout, c.cfg.ConnectTimeout)
	c.setStatus(StatusConnectionError)
}

func (c *Controller) handleSubscribe(streamerID int) {
	p, ok := c.reg.Get(streamerID)
	if !ok {
		c.notify.Logf("cannot subscribe: %v", NewPeerError("subscribe", streamerID, ErrUnknownStreamer))
		return
	}
	c.attachListeners(p)
	if c.ch == nil {
		c.notify.Logf("cannot subscribe: %v", NewPeerError("subscribe", streamerID, ErrNotConnected))
		return
	}
	if err := c.ch.Send(signaling.NewSubscribe(streamerID)); err != nil {
		slog.Error("send subscribe", "streamer", streamerID, "err", err)
		return
	}
	c.notify.Logf("subscribed to streamer %d", streamerID)
}

// attachListeners registers the candidate, state, and track callbacks on
// a peer connection. Each listener is attached at most once; the flags on
// the entry make re-attachment a no-op.
func (c *Controller) attachListeners(p *Peer) {
	id := p.ID

	if !p.listeners.candidate {
		p.PC.OnICECandidate(func(init pion.ICECandidateInit) {
			c.post(evtLocalCandidate{streamerID: id, init: init})
		})
		p.listeners.candidate = true
	}
	if !p.listeners.state {
		p.PC.OnConnectionStateChange(func(state pion.PeerConnectionState) {
			c.post(evtPeerState{streamerID: id, state: state})
		})
		p.listeners.state = true
	}
	if !p.listeners.track {
		p.PC.OnTrack(func(track webrtc.Track) {
			c.post(evtTrack{streamerID: id, track: track})
		})
		p.listeners.track = true
	}

	if p.Phase == PhaseIdle {
		c.setPhase(p, PhaseListening)
	}
}

func (c *Controller) handleLocalCandidate(e evtLocalCandidate) {
	if _, ok := c.reg.Get(e.streamerID); !ok {
		// The peer was removed between gathering and dispatch.
		return
	}
	if c.ch == nil {
		return
	}
	msg, err := signaling.NewCandidate(e.streamerID, e.init)
	if err != nil {
		slog.Error("encode local candidate", "streamer", e.streamerID, "err", err)
		return
	}
	if err := c.ch.Send(msg); err != nil {
		slog.Warn("send local candidate", "streamer", e.streamerID, "err", err)
	}
}

func (c *Controller) handlePeerState(e evtPeerState) {
	if _, ok := c.reg.Get(e.streamerID); !ok {
		return
	}
	c.notify.Logf("streamer %d connection state: %s", e.streamerID, e.state)
}

func (c *Controller) handleTrack(e evtTrack) {
	p, ok := c.reg.Get(e.streamerID)
	if !ok {
		return
	}
	c.setPhase(p, PhaseEstablished)
	c.notify.Logf("receiving %s from streamer %d (%s)", e.track.Kind(), e.streamerID, e.track.Codec())
	c.sink.Play(e.streamerID, e.track)
}

func (c *Controller) setStatus(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	c.notify.Status(s)
}

func (c *Controller) setPhase(p *Peer, phase Phase) {
	if p.Phase == phase {
		return
	}
	p.Phase = phase
	c.notify.PeerPhase(p.ID, phase)
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) clearPeers() {
	c.sink.StopAll()
	c.reg.Clear()
	c.notify.Roster(c.reg.IDs())
}

func (c *Controller) teardown() {
	c.attempt++
	c.stopTimer()
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	c.clearPeers()
	c.hasSession = false
	c.setStatus(StatusDisconnected)
}

// channelHandler adapts signaling.Handler callbacks into tagged events on
// the controller queue.
type channelHandler struct {
	ctl     *Controller
	attempt uint64
	ch      Channel
}

func (h *channelHandler) HandleOpen() {
	h.ctl.post(evtChannelOpen{attempt: h.attempt, ch: h.ch})
}

func (h *channelHandler) HandleMessage(msg *signaling.Message) {
	h.ctl.post(evtChannelMessage{attempt: h.attempt, msg: msg})
}

func (h *channelHandler) HandleClose(err error) {
	h.ctl.post(evtChannelClosed{attempt: h.attempt, err: err})
}

func (h *channelHandler) HandleError(err error) {
	h.ctl.post(evtChannelError{attempt: h.attempt, err: err})
}
