package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/config"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/media"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/session"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/ui"
	"github.com/ennemli/webrtc-client-windows-streaming/internal/webrtc"
)

var (
	flagWatchHost     string
	flagWatchPort     int
	flagWatchSecure   bool
	flagWatchTimeout  time.Duration
	flagWatchSTUN     string
	flagWatchTURN     string
	flagWatchTURNUser string
	flagWatchTURNPass string
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Connect to the signaling server and watch a stream",
	Long: `Connect to the signaling server, list the available streamers and
negotiate a WebRTC session with the selected one.

Examples:
  streamwatch watch
  streamwatch watch --host stream.example.com --port 443 --secure
  streamwatch watch --stun stun:stun.l.google.com:19302`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func runWatch() error {
	cfg, err := config.Load(config.Options{
		Host:           flagWatchHost,
		Port:           flagWatchPort,
		Secure:         flagWatchSecure,
		ConnectTimeout: flagWatchTimeout,
		STUNServer:     flagWatchSTUN,
		TURNServer:     flagWatchTURN,
		TURNUser:       flagWatchTURNUser,
		TURNPass:       flagWatchTURNPass,
	})
	if err != nil {
		return err
	}

	factory, err := webrtc.NewFactory(cfg)
	if err != nil {
		return err
	}

	sink := media.NewSink()
	view := ui.NewWatchUI()

	ctl := session.NewController(cfg, factory, session.DefaultDialer, view, sink)
	view.SetControls(ctl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctl.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		<-sig
		view.Quit()
	}()

	ctl.Connect()

	err = view.Run()

	ctl.Shutdown()

	if stats := sink.Snapshot(); len(stats) > 0 {
		ui.RenderSessionSummary(stats)
	}

	return err
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&flagWatchHost, "host", "", "Signaling server host")
	watchCmd.Flags().IntVarP(&flagWatchPort, "port", "p", 0, "Signaling server port")
	watchCmd.Flags().BoolVar(&flagWatchSecure, "secure", false, "Use wss:// instead of ws://")
	watchCmd.Flags().DurationVar(&flagWatchTimeout, "connect-timeout", 0, "Signaling connect timeout (default 5s)")
	watchCmd.Flags().StringVarP(&flagWatchSTUN, "stun", "s", "", "Custom STUN server")
	watchCmd.Flags().StringVarP(&flagWatchTURN, "turn", "t", "", "Custom TURN server")
	watchCmd.Flags().StringVar(&flagWatchTURNUser, "turn-user", "", "TURN username")
	watchCmd.Flags().StringVar(&flagWatchTURNPass, "turn-pass", "", "TURN password")
}
