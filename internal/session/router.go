package session

import (
	"log/slog"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/signaling"
)

// route dispatches one decoded signaling message. Unknown message types
// and messages naming unknown streamers are logged and dropped; nothing
// in here is allowed to take the session down.
func (c *Controller) route(msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypeConnect:
		c.handleConnect(msg)
	case signaling.MessageTypeNewStreamer:
		c.handleNewStreamer(msg)
	case signaling.MessageTypeStreamerDisconnected:
		c.handleStreamerDisconnected(msg)
	case signaling.MessageTypeOffer:
		c.handleOffer(msg)
	case signaling.MessageTypeICECandidate:
		c.handleRemoteCandidate(msg)
	default:
		slog.Warn("ignoring unknown signaling message", "type", msg.Type)
	}
}

// handleConnect records the server-assigned client id and upserts the
// streamer roster. A repeated connect with the same id is an idempotent
// roster refresh; a different id mid-session is a protocol error and the
// message is rejected outright.
func (c *Controller) handleConnect(msg *signaling.Message) {
	if c.hasSession && c.clientID != msg.ID {
		slog.Error("rejecting connect with changed client id",
			"have", c.clientID, "got", msg.ID)
		c.notify.Logf("server sent conflicting client id %d (have %d)", msg.ID, c.clientID)
		return
	}
	if !c.hasSession {
		c.clientID = msg.ID
		c.hasSession = true
		c.notify.Logf("registered as client %d", msg.ID)
	}

	changed := false
	for _, id := range msg.Streamers {
		if _, created, err := c.reg.Upsert(id); err != nil {
			slog.Error("create peer for roster entry", "streamer", id, "err", err)
		} else if created {
			changed = true
		}
	}
	if changed {
		c.notify.Roster(c.reg.IDs())
	}
}

func (c *Controller) handleNewStreamer(msg *signaling.Message) {
	// Listeners are attached lazily, on the first offer or subscribe,
	// so a streamer that never negotiates costs nothing beyond the entry.
	_, created, err := c.reg.Upsert(msg.StreamerID)
	if err != nil {
		slog.Error("create peer for new streamer", "streamer", msg.StreamerID, "err", err)
		return
	}
	if created {
		c.notify.Logf("streamer %d appeared", msg.StreamerID)
		c.notify.Roster(c.reg.IDs())
	}
}

func (c *Controller) handleStreamerDisconnected(msg *signaling.Message) {
	if !c.reg.Remove(msg.StreamerID) {
		return
	}
	c.sink.Stop(msg.StreamerID)
	c.notify.Logf("streamer %d disconnected", msg.StreamerID)
	c.notify.Roster(c.reg.IDs())
}

// handleOffer runs the sender-initiated negotiation: apply the remote
// offer, create and apply our answer, send it back. Any failure leaves
// the peer in its prior phase and the session keeps serving other peers.
func (c *Controller) handleOffer(msg *signaling.Message) {
	p, ok := c.reg.Get(msg.Sender)
	if !ok {
		// Offers may legitimately race ahead of the new-streamer
		// notification; drop rather than fail the session.
		slog.Warn("offer from unknown streamer", "streamer", msg.Sender)
		c.notify.Logf("dropped offer from unknown streamer %d", msg.Sender)
		return
	}

	offer, err := msg.OfferDescription()
	if err != nil {
		slog.Error("bad offer", "streamer", msg.Sender, "err", err)
		return
	}

	c.attachListeners(p)
	prev := p.Phase

	if err := p.PC.SetRemoteDescription(offer); err != nil {
		slog.Error("apply remote offer", "streamer", p.ID, "err", err)
		c.setPhase(p, prev)
		return
	}
	answer, err := p.PC.CreateAnswer()
	if err != nil {
		slog.Error("create answer", "streamer", p.ID, "err", err)
		c.setPhase(p, prev)
		return
	}
	if err := p.PC.SetLocalDescription(answer); err != nil {
		slog.Error("apply local answer", "streamer", p.ID, "err", err)
		c.setPhase(p, prev)
		return
	}

	reply, err := signaling.NewAnswer(p.ID, answer)
	if err != nil {
		slog.Error("encode answer", "streamer", p.ID, "err", err)
		c.setPhase(p, prev)
		return
	}
	if c.ch == nil {
		slog.Error("no channel to send answer", "streamer", p.ID)
		c.setPhase(p, prev)
		return
	}
	if err := c.ch.Send(reply); err != nil {
		slog.Error("send answer", "streamer", p.ID, "err", err)
		c.setPhase(p, prev)
		return
	}

	c.setPhase(p, PhaseNegotiating)
	c.notify.Logf("answered offer from streamer %d", p.ID)
}

// handleRemoteCandidate forwards a streamer's ICE candidate into its peer
// connection. Candidates can race ahead of streamer registration, and one
// bad candidate must never abort the session, so every failure here is
// log-and-drop.
func (c *Controller) handleRemoteCandidate(msg *signaling.Message) {
	p, ok := c.reg.Get(msg.Sender)
	if !ok {
		slog.Warn("ice candidate from unknown streamer", "streamer", msg.Sender)
		c.notify.Logf("dropped ice candidate from unknown streamer %d", msg.Sender)
		return
	}
	if p.Phase == PhaseIdle {
		// No listeners attached and no negotiation started: a candidate
		// here is out of order and has nowhere meaningful to land.
		slog.Warn("ice candidate before negotiation", "streamer", p.ID)
		return
	}

	init, err := msg.CandidateInit()
	if err != nil {
		slog.Error("bad ice candidate", "streamer", p.ID, "err", err)
		return
	}
	if err := p.PC.AddICECandidate(init); err != nil {
		slog.Warn("apply ice candidate", "streamer", p.ID, "err", err)
	}
}
