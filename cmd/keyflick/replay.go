package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/keyflick/internal/capture"
	"github.com/ayusman/keyflick/internal/session"
)

func newReplayCmd(g *globalFlags) *cobra.Command {
	var (
		key      keyFlags
		interval time.Duration
		updates  bool
	)

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay newline-delimited touch events (use - for stdin)",
		Long: `Replay reads one JSON event per line, for example
  {"type":"begin","x":120,"y":40}
  {"type":"move","x":131,"y":40}
  {"type":"end","x":160,"y":41}
and prints the result of every touch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := g.settings()
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			aspect, mode, err := key.resolve(1, "")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			touches := 0
			player := capture.Player{
				Interval: interval,
				Discard:  true,
				OnOutcome: func(out session.Outcome) {
					touches++
					fmt.Fprintf(w, "%s ", dimColor.Sprintf("#%d", touches))
					printOutcome(w, out)
				},
			}
			if updates {
				player.OnUpdate = func(e capture.Event, u session.Update) {
					line := fmt.Sprintf("  move (%.1f, %.1f) preview %s", e.X, e.Y, u.Preview)
					if u.Fired {
						line += " " + okColor.Sprintf("circle %s", u.Circular)
					}
					fmt.Fprintln(w, dimColor.Sprint(line))
				}
			}

			_, err = player.Play(cmd.Context(), capture.NewEventReader(r), session.New(settings, aspect, mode))
			return err
		},
	}

	key.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 0, "Delay between events, e.g. 8ms")
	cmd.Flags().BoolVarP(&updates, "updates", "u", false, "Print live feedback for every move")
	return cmd
}
