package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/keyflick/internal/calibrate"
	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/store"
)

func (g *globalFlags) openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(g.dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return store.New(g.dbPath)
}

func newImportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Store recorded trace documents in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := g.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			for _, path := range args {
				raw, err := readFileOrStdin(cmd, path)
				if err != nil {
					return err
				}
				doc, err := calibrate.ParseDocument(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				label := doc.ResultLabel()
				if label != "" {
					if _, err := gesture.ParseResult(label); err != nil {
						return fmt.Errorf("%s: invalid label: %w", path, err)
					}
				}

				t := &store.Trace{
					ID:          doc.ID,
					Label:       label,
					Mode:        doc.Mode,
					AspectRatio: doc.AspectRatio,
					Points:      doc.Points,
				}
				if err := st.Traces().Create(t); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", okColor.Sprint("+"), t.ID, dimColor.Sprint(label))
			}
			return nil
		},
	}
}

func newEvalCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "eval [FILE...]",
		Short: "Score the recognizer on labeled traces",
		Long:  "Eval replays the given trace documents, or every labeled trace in the database when no file is given, and prints a confusion matrix.",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := g.settings()
			if err != nil {
				return err
			}

			traces, err := g.loadTraces(cmd, args, &settings)
			if err != nil {
				return err
			}

			report, err := calibrate.Evaluate(cmd.Context(), traces, settings)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprint(w, report.String())
			for _, m := range report.Misses {
				fmt.Fprintf(w, "%s %s: want %s, got %s\n", failColor.Sprint("✗"), m.ID, m.Want, m.Got)
			}
			if report.Total > 0 && report.Correct == report.Total {
				fmt.Fprintln(w, okColor.Sprint("all traces recognized"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// loadTraces parses the given files, or reads the labeled traces from the
// store when there are none. Settings persisted through the API apply to
// store evaluations.
func (g *globalFlags) loadTraces(cmd *cobra.Command, paths []string, settings *config.Settings) ([]calibrate.Trace, error) {
	var traces []calibrate.Trace

	if len(paths) > 0 {
		for _, path := range paths {
			raw, err := readFileOrStdin(cmd, path)
			if err != nil {
				return nil, err
			}
			tr, err := calibrate.ParseTrace(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if tr.ID == "" {
				tr.ID = filepath.Base(path)
			}
			traces = append(traces, tr)
		}
		return traces, nil
	}

	st, err := g.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	override := *settings
	if err := st.Settings().GetJSON(config.StoreKey, &override); err == nil && override.Validate() == nil {
		*settings = override
	}

	stored, err := st.Traces().ListLabeled()
	if err != nil {
		return nil, err
	}
	for _, t := range stored {
		tr, err := calibrate.FromStore(t)
		if err != nil {
			return nil, err
		}
		traces = append(traces, tr)
	}
	return traces, nil
}
