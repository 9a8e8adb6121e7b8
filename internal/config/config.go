package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultHost = "localhost"
	DefaultPort = 8080
	DefaultSTUN = "stun:stun.l.google.com:19302"

	// DefaultConnectTimeout bounds how long a signaling connect attempt may
	// stay in the Connecting state before it is declared failed.
	DefaultConnectTimeout = 5 * time.Second
)

// Config holds application configuration.
type Config struct {
	// Host and Port locate the signaling server.
	Host string
	Port int

	// Secure selects wss:// over ws://.
	Secure bool

	// ConnectTimeout bounds how long a signaling connect may take.
	ConnectTimeout time.Duration

	// ICE servers for WebRTC.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options for loading config with CLI flag overrides.
type Options struct {
	Host           string
	Port           int
	Secure         bool
	ConnectTimeout time.Duration
	STUNServer     string
	TURNServer     string
	TURNUser       string
	TURNPass       string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	host := opts.Host
	if host == "" {
		host = os.Getenv("SIGNAL_HOST")
	}
	if host == "" {
		host = DefaultHost
	}

	port := opts.Port
	if port == 0 {
		if p := os.Getenv("SIGNAL_PORT"); p != "" {
			parsed, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid SIGNAL_PORT %q: %w", p, err)
			}
			port = parsed
		}
	}
	if port == 0 {
		port = DefaultPort
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("signaling port out of range: %d", port)
	}

	connectTimeout := opts.ConnectTimeout
	if connectTimeout == 0 {
		if v := os.Getenv("CONNECT_TIMEOUT"); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid CONNECT_TIMEOUT %q: %w", v, err)
			}
			connectTimeout = parsed
		}
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	stunServer := opts.STUNServer
	if stunServer == "" {
		stunServer = os.Getenv("STUN_SERVER")
	}
	if stunServer == "" {
		stunServer = DefaultSTUN
	}

	turnServer := opts.TURNServer
	if turnServer == "" {
		turnServer = os.Getenv("TURN_SERVER")
	}

	turnUser := opts.TURNUser
	if turnUser == "" {
		turnUser = os.Getenv("TURN_USERNAME")
	}

	turnPass := opts.TURNPass
	if turnPass == "" {
		turnPass = os.Getenv("TURN_PASSWORD")
	}

	return &Config{
		Host:           host,
		Port:           port,
		Secure:         opts.Secure,
		ConnectTimeout: connectTimeout,
		STUNServer:     stunServer,
		TURNServer:     turnServer,
		TURNUser:       turnUser,
		TURNPass:       turnPass,
	}, nil
}

// WebSocketURL builds the signaling endpoint. The role is fixed: this
// client only ever joins as a consumer.
func (c *Config) WebSocketURL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		RawQuery: "role=consumer",
	}
	return u.String()
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
