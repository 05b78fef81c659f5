package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/curlcount/internal/logging"
	"github.com/ayusman/curlcount/internal/pose"
	"github.com/ayusman/curlcount/internal/rep"
)

func newReplayCmd() *cobra.Command {
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "replay FILE|-",
		Short: "Count curls in a recorded landmark stream",
		Long: `Replay reads a JSON-lines recording with one frame per line, either
{"pose":{"points":[...]}} or {"pose":null} for a frame without a person,
and runs it through the counter. No camera or pose model is needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.InitWriter(cfg.LogLevel, cmd.ErrOrStderr())

			sc, err := cfg.sessionConfig()
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			return replay(in, cmd.OutOrStdout(), sc, summaryOnly)
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "print only the final counts")
	return cmd
}

// replay feeds every recorded frame through a Session and prints the
// overlay text per frame followed by the final counts.
func replay(in io.Reader, out io.Writer, sc rep.SessionConfig, summaryOnly bool) error {
	session, err := rep.NewSession(sc)
	if err != nil {
		return err
	}

	reader := pose.NewFrameReader(in)
	frames := 0
	for {
		lm, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		frames++

		snap := session.Process(lm)
		if summaryOnly {
			continue
		}

		status := snap.Text()
		if !snap.Detected {
			status += " (no pose)"
		}
		fmt.Fprintf(out, "%5d  %s\n", frames, status)
		for _, ev := range snap.Events {
			fmt.Fprintf(out, "%5d  %s rep %d (signal %.3f)\n", frames, ev.Limb, ev.Rep, ev.Signal)
		}
	}

	final := session.Snapshot()
	fmt.Fprintf(out, "frames: %d\n", frames)
	for _, l := range final.Limbs {
		fmt.Fprintf(out, "%s: %d\n", l.Limb, l.Reps)
	}
	return nil
}
