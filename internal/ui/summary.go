package ui

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/media"
)

// RenderSessionSummary prints the per-streamer media totals collected
// over the session. Rendered once, after the interactive view exits.
func RenderSessionSummary(stats []media.Stats) {
	if len(stats) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Session Summary")
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter

	t.AppendHeader(table.Row{"Streamer", "Kind", "Codec", "Packets", "Received"})
	for _, s := range stats {
		name := fmt.Sprintf("%d", s.StreamerID)
		if s.Active {
			name += " *"
		}
		t.AppendRow(table.Row{name, s.Kind, s.Codec, s.Packets, formatBytes(s.Bytes)})
	}

	fmt.Println()
	t.Render()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
