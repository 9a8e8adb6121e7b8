// Package webrtc wraps the pion peer connection behind the narrow surface
// the session core negotiates against: description setters, candidate
// intake, and the three listener hooks. The session never touches pion
// directly, which keeps the negotiation logic testable with fakes.
package webrtc

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/config"
)

// Track is one inbound media track.
type Track interface {
	ID() string
	Kind() string
	Codec() string
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// PeerConnection is the per-streamer negotiation primitive.
type PeerConnection interface {
	SetRemoteDescription(pion.SessionDescription) error
	CreateAnswer() (pion.SessionDescription, error)
	SetLocalDescription(pion.SessionDescription) error
	AddICECandidate(pion.ICECandidateInit) error

	// OnICECandidate fires for every locally gathered candidate. The
	// end-of-gathering nil marker is filtered out before the callback.
	OnICECandidate(func(pion.ICECandidateInit))
	OnConnectionStateChange(func(pion.PeerConnectionState))
	OnTrack(func(Track))

	Close() error
}

// Factory creates a fresh PeerConnection for a newly discovered streamer.
type Factory func() (PeerConnection, error)

// NewFactory builds a pion API configured for pure media consumption and
// returns a factory producing recvonly peer connections from it.
func NewFactory(cfg *config.Config) (Factory, error) {
	mediaEngine := &pion.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register default interceptors: %w", err)
	}

	// Ask streamers for periodic keyframes; without PLI a consumer that
	// joins mid-stream can wait indefinitely for a decodable frame.
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create PLI interceptor: %w", err)
	}
	registry.Add(pli)

	api := pion.NewAPI(
		pion.WithMediaEngine(mediaEngine),
		pion.WithInterceptorRegistry(registry),
	)

	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}
	if turn := cfg.GetTURNServers(); turn != nil {
		user, pass := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turn,
			Username:   user,
			Credential: pass,
		})
	}

	return func() (PeerConnection, error) {
		pc, err := api.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
		if err != nil {
			return nil, fmt.Errorf("create peer connection: %w", err)
		}

		for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeVideo, pion.RTPCodecTypeAudio} {
			if _, err := pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
				Direction: pion.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				pc.Close()
				return nil, fmt.Errorf("add %s transceiver: %w", kind, err)
			}
		}

		return &conn{pc: pc}, nil
	}, nil
}

// conn adapts *pion.PeerConnection to the PeerConnection interface.
type conn struct {
	pc *pion.PeerConnection
}

func (c *conn) SetRemoteDescription(desc pion.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *conn) CreateAnswer() (pion.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *conn) SetLocalDescription(desc pion.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *conn) AddICECandidate(init pion.ICECandidateInit) error {
	return c.pc.AddICECandidate(init)
}

func (c *conn) OnICECandidate(fn func(pion.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *pion.ICECandidate) {
		if cand == nil {
			return
		}
		fn(cand.ToJSON())
	})
}

func (c *conn) OnConnectionStateChange(fn func(pion.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

func (c *conn) OnTrack(fn func(Track)) {
	c.pc.OnTrack(func(t *pion.TrackRemote, _ *pion.RTPReceiver) {
		fn(&remoteTrack{t: t})
	})
}

func (c *conn) Close() error {
	return c.pc.Close()
}

// remoteTrack adapts *pion.TrackRemote to Track.
type remoteTrack struct {
	t *pion.TrackRemote
}

func (r *remoteTrack) ID() string   { return r.t.ID() }
func (r *remoteTrack) Kind() string { return r.t.Kind().String() }
func (r *remoteTrack) Codec() string {
	return r.t.Codec().MimeType
}

func (r *remoteTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return r.t.ReadRTP()
}
