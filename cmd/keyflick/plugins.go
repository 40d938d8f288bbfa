package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/plugin"
	"github.com/ayusman/keyflick/internal/store"
)

func (g *globalFlags) discoverPlugins() (*plugin.Manager, error) {
	m := plugin.NewManager(g.pluginDir)
	if err := m.Discover(); err != nil {
		return nil, fmt.Errorf("failed to scan plugins: %w", err)
	}
	return m, nil
}

func newPluginsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins that bindings can run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := g.discoverPlugins()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			plugins := m.List()
			if len(plugins) == 0 {
				fmt.Fprintf(w, "no plugins in %s\n", m.Dir())
				return nil
			}
			for _, p := range plugins {
				fmt.Fprintf(w, "%s %s %s\n", kindColor.Sprint(p.Manifest.Name),
					dimColor.Sprint(p.Manifest.Version), strings.Join(p.Manifest.Actions, ", "))
				if p.Manifest.Description != "" {
					fmt.Fprintf(w, "  %s\n", p.Manifest.Description)
				}
			}
			return nil
		},
	}
}

func newBindingsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Manage the plugin actions run for recognized gestures",
	}
	cmd.AddCommand(newBindingsListCmd(g), newBindingsAddCmd(g), newBindingsRemoveCmd(g))
	return cmd
}

func newBindingsListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := g.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			bindings, err := st.Bindings().List()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(bindings) == 0 {
				fmt.Fprintln(w, "no bindings")
				return nil
			}
			for _, b := range bindings {
				state := okColor.Sprint("on ")
				if !b.Enabled {
					state = dimColor.Sprint("off")
				}
				fmt.Fprintf(w, "%s %s %s -> %s/%s %s %s\n", state, b.ID, kindColor.Sprint(b.Gesture),
					b.Plugin, b.Action, string(b.Params), dimColor.Sprintf("[%s]", b.Source))
			}
			return nil
		},
	}
}

func newBindingsAddCmd(g *globalFlags) *cobra.Command {
	var (
		source   string
		params   string
		disabled bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "add GESTURE PLUGIN ACTION",
		Short: "Run a plugin action when a gesture is recognized",
		Example: `  keyflick bindings add swipe:left keyboard keystroke --params '{"key":"left"}'
  keyflick bindings add circular:clockwise keyboard type --params '{"text":"hello"}' --source any`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := gesture.ParseResult(args[0])
			if err != nil {
				return fmt.Errorf("invalid gesture: %w", err)
			}
			if !store.ValidSource(source) {
				return fmt.Errorf("unknown source %q", source)
			}

			raw := json.RawMessage(params)
			if !json.Valid(raw) || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
				return errors.New("params must be a JSON object")
			}

			if !force {
				m, err := g.discoverPlugins()
				if err != nil {
					return err
				}
				p, err := m.Get(args[1])
				if err != nil {
					return fmt.Errorf("unknown plugin %q in %s (use --force to bind anyway)", args[1], m.Dir())
				}
				if !p.Manifest.HasAction(args[2]) {
					return fmt.Errorf("plugin %s has no action %q", args[1], args[2])
				}
			}

			st, err := g.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			b := &store.Binding{
				Gesture: result.String(),
				Source:  source,
				Plugin:  args[1],
				Action:  args[2],
				Params:  raw,
				Enabled: !disabled,
			}
			if err := st.Bindings().Create(b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s -> %s/%s\n", okColor.Sprint("+"), b.ID,
				kindColor.Sprint(b.Gesture), b.Plugin, b.Action)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", store.SourceSession, "Outcome source: session, classify, trace or any")
	cmd.Flags().StringVar(&params, "params", "{}", "Action parameters (JSON object)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the binding disabled")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the plugin and action check")
	return cmd
}

func newBindingsRemoveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"remove"},
		Short:   "Delete bindings",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := g.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.Bindings().Delete(id); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("binding %s not found", id)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", failColor.Sprint("-"), id)
			}
			return nil
		},
	}
}
