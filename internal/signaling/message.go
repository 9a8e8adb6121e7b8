// Package signaling implements the WebSocket control channel to the
// signaling server: the JSON message envelope and a client with
// read/write pumps.
package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Message type constants.
const (
	// Inbound.
	MessageTypeConnect              = "connect"
	MessageTypeNewStreamer          = "new-streamer"
	MessageTypeStreamerDisconnected = "streamer-disconnected"
	MessageTypeOffer                = "offer"

	// Outbound. ice-candidate flows both ways.
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "ice-candidate"
	MessageTypeSubscribe    = "subscribe"
)

// Message is the envelope for every signaling exchange. Which fields are
// populated depends on Type; the zero value of the rest is omitted on the
// wire.
type Message struct {
	Type string `json:"type"`

	// connect: the id assigned to this client and the current roster.
	ID        int   `json:"id,omitempty"`
	Streamers []int `json:"streamers,omitempty"`

	// new-streamer / streamer-disconnected.
	StreamerID int `json:"streamer_id,omitempty"`

	// offer carries a session description object; an outbound answer
	// spreads the description into the envelope itself, so the raw
	// payload is kept opaque here and decoded on demand.
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	// Sender identifies the originating streamer on inbound messages;
	// Target names the destination streamer on outbound ones.
	Sender int `json:"sender,omitempty"`
	Target int `json:"target,omitempty"`
}

// OfferDescription decodes the SDP payload of an offer message.
func (m *Message) OfferDescription() (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	if len(m.SDP) == 0 {
		return desc, fmt.Errorf("offer from %d has no sdp payload", m.Sender)
	}
	if err := json.Unmarshal(m.SDP, &desc); err != nil {
		return desc, fmt.Errorf("decode offer sdp: %w", err)
	}
	if desc.Type != webrtc.SDPTypeOffer {
		return desc, fmt.Errorf("offer from %d carries sdp type %q", m.Sender, desc.Type)
	}
	return desc, nil
}

// CandidateInit decodes the ICE candidate payload.
func (m *Message) CandidateInit() (webrtc.ICECandidateInit, error) {
	var init webrtc.ICECandidateInit
	if len(m.Candidate) == 0 {
		return init, fmt.Errorf("ice-candidate from %d has no payload", m.Sender)
	}
	if err := json.Unmarshal(m.Candidate, &init); err != nil {
		return init, fmt.Errorf("decode ice candidate: %w", err)
	}
	return init, nil
}

// NewAnswer builds the outbound answer for a streamer. The description
// fields are spread into the envelope: the message type doubles as the
// SDP type, matching what the server relays to the streamer side.
func NewAnswer(target int, answer webrtc.SessionDescription) (*Message, error) {
	sdp, err := json.Marshal(answer.SDP)
	if err != nil {
		return nil, fmt.Errorf("encode answer sdp: %w", err)
	}
	return &Message{Type: MessageTypeAnswer, SDP: sdp, Target: target}, nil
}

// NewCandidate builds an outbound ice-candidate message for a streamer.
func NewCandidate(target int, init webrtc.ICECandidateInit) (*Message, error) {
	payload, err := json.Marshal(init)
	if err != nil {
		return nil, fmt.Errorf("encode ice candidate: %w", err)
	}
	return &Message{Type: MessageTypeICECandidate, Candidate: payload, Target: target}, nil
}

// NewSubscribe builds the outbound subscribe request for a streamer.
func NewSubscribe(target int) *Message {
	return &Message{Type: MessageTypeSubscribe, Target: target}
}
