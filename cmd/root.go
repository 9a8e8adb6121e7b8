package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/ui"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "streamwatch",
	Short:   "Watch remote desktop streams over WebRTC",
	Long:    `Streamwatch is a command-line viewer for desktop streams published through a WebRTC signaling server. It discovers the streamers announced by the server, negotiates a direct peer connection with the one you pick, and consumes the incoming media.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
