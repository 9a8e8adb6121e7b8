package version

// Version is the current version of the streamwatch CLI.
// It can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/ennemli/webrtc-client-windows-streaming/internal/version.Version=v1.0.0'"
var Version = "dev"
