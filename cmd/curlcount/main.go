// Command curlcount counts arm curls from a webcam and serves a live
// dashboard.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "curlcount",
		Short: "Count arm curls from a webcam",
		Long: `curlcount watches a webcam, tracks the shoulder, elbow and wrist of each
arm with a pose model, and counts a repetition each time an arm curls.

Counts are shown on the annotated video, in the browser dashboard and in
the optional tray menu. Every session and rep is stored in sqlite.

Examples:
  curlcount                          # same as "curlcount serve"
  curlcount serve --mode displacement --limbs left
  curlcount replay recording.jsonl
  curlcount sessions`,
		SilenceUsage: true,
	}

	addConfigFlags(root)

	serve := newServeCmd()
	root.AddCommand(serve, newReplayCmd(), newSessionsCmd(), newVersionCmd())

	// Bare "curlcount" runs the server.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "curlcount - Arm Curl Counter\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
