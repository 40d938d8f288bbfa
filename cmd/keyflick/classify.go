package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/keyflick/internal/calibrate"
	"github.com/ayusman/keyflick/internal/capture"
	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/session"
)

// keyFlags override the key geometry recorded in a trace.
type keyFlags struct {
	aspect float64
	mode   string
}

func (k *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&k.aspect, "aspect", 0, "Key width/height ratio (overrides the trace)")
	cmd.Flags().StringVar(&k.mode, "mode", "", "Classification mode: features or offset (overrides the trace)")
}

// resolve applies the flags over the values from a trace.
func (k *keyFlags) resolve(aspect float64, mode string) (float64, session.Mode, error) {
	if k.aspect != 0 {
		aspect = k.aspect
	}
	if !(aspect > 0) {
		aspect = 1
	}
	if k.mode != "" {
		mode = k.mode
	}
	m, err := session.ParseMode(mode)
	return aspect, m, err
}

func newClassifyCmd(g *globalFlags) *cobra.Command {
	var (
		key          keyFlags
		showFeatures bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Classify a recorded trace (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := g.settings()
			if err != nil {
				return err
			}

			raw, err := readFileOrStdin(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := calibrate.ParseDocument(raw)
			if err != nil {
				return err
			}

			aspect, mode, err := key.resolve(doc.AspectRatio, doc.Mode)
			if err != nil {
				return err
			}

			sess := session.New(settings, aspect, mode)
			outcomes, err := capture.Replay(cmd.Context(), capture.NewTraceSource(doc.Points), sess, 0)
			if err != nil {
				return err
			}
			out := outcomes[0]

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			printOutcome(w, out)
			if label := doc.ResultLabel(); label != "" {
				want, err := gesture.ParseResult(label)
				if err != nil {
					return fmt.Errorf("invalid label: %w", err)
				}
				if want == out.Result {
					fmt.Fprintf(w, "%s matches label %s\n", okColor.Sprint("✓"), label)
				} else {
					fmt.Fprintf(w, "%s expected %s\n", failColor.Sprint("✗"), label)
				}
			}
			if showFeatures {
				fmt.Fprintln(w, dimColor.Sprint(out.Features.String()))
			}
			return nil
		},
	}

	key.register(cmd)
	cmd.Flags().BoolVarP(&showFeatures, "features", "f", false, "Print the extracted features")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full outcome as JSON")
	return cmd
}

func printOutcome(w io.Writer, out session.Outcome) {
	fmt.Fprintf(w, "%s %s\n", kindColor.Sprint(out.Result), dimColor.Sprintf("(%d samples)", out.Samples))
	if out.LiveCircular != gesture.NoSense {
		fmt.Fprintf(w, "  live circle: %s\n", out.LiveCircular)
	}
	if out.PathCircular != gesture.NoSense && out.Result.Kind != gesture.Circular {
		fmt.Fprintf(w, "  path circle: %s\n", out.PathCircular)
	}
}

func readFileOrStdin(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
