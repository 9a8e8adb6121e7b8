package main

import (
	"github.com/ennemli/webrtc-client-windows-streaming/cmd"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
