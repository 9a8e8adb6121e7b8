package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/dns"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrClosed is returned by Send after the client has been closed.
var ErrClosed = errors.New("signaling: client closed")

// Handler receives channel lifecycle events and inbound messages. All
// methods are invoked from the client's internal goroutines; implementations
// are expected to hand the events off to their own dispatch loop.
type Handler interface {
	// HandleOpen fires once when the WebSocket reaches the open state.
	HandleOpen()
	// HandleMessage fires for every decoded inbound envelope.
	HandleMessage(*Message)
	// HandleClose fires when an open connection goes away.
	HandleClose(err error)
	// HandleError fires when the connection could not be established.
	HandleError(err error)
}

// Client manages one WebSocket connection to the signaling server.
type Client struct {
	serverURL string
	handler   Handler

	mu   sync.Mutex
	conn *websocket.Conn

	outgoing chan *Message
	done     chan struct{}
	once     sync.Once
}

// NewClient creates a client for the given endpoint. Nothing is dialed
// until Connect is called.
func NewClient(serverURL string, h Handler) *Client {
	return &Client{
		serverURL: serverURL,
		handler:   h,
		outgoing:  make(chan *Message, 16),
		done:      make(chan struct{}),
	}
}

// Connect dials the server in the background. The outcome is reported
// through the Handler: HandleOpen on success, HandleError on failure.
func (c *Client) Connect() {
	go c.dial()
}

func (c *Client) dial() {
	// Resolve through our own lookup with public-DNS fallback.
	dialer := *websocket.DefaultDialer
	dialer.NetDial = func(network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ip, err := dns.Lookup(host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
		return net.Dial(network, net.JoinHostPort(ip, port))
	}

	conn, _, err := dialer.Dial(c.serverURL, nil)
	if err != nil {
		c.handler.HandleError(fmt.Errorf("failed to connect: %w", err))
		return
	}

	c.mu.Lock()
	select {
	case <-c.done:
		// Closed while the dial was in flight.
		c.mu.Unlock()
		conn.Close()
		return
	default:
	}
	c.conn = conn
	c.mu.Unlock()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump(conn)
	go c.writePump(conn)

	c.handler.HandleOpen()
}

// readPump reads envelopes until the connection dies. Payloads that fail
// to decode are logged and dropped; they never terminate the connection.
func (c *Client) readPump(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				c.handler.HandleClose(nil)
			default:
				c.handler.HandleClose(err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("dropping malformed signaling payload", "err", err)
			continue
		}
		c.handler.HandleMessage(&msg)
	}
}

// writePump serializes outbound writes and sends periodic pings.
func (c *Client) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues a message for delivery.
func (c *Client) Send(msg *Message) error {
	select {
	case <-c.done:
		return ErrClosed
	case c.outgoing <- msg:
		return nil
	}
}

// Close tears the connection down. Safe to call more than once and
// before the dial has completed.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
}
