package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/ayusman/keyflick/internal/app"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr      string
		staticDir string
		noStore   bool
		noPlugins bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config{
				ConfigPath: g.configPath,
				DBPath:     g.dbPath,
				StaticDir:  staticDir,
				PluginDir:  g.pluginDir,
			}
			if noStore {
				cfg.DBPath = ""
			}
			if noPlugins {
				cfg.PluginDir = ""
			}
			if cfg.StaticDir == "" {
				cfg.StaticDir = findWebDir()
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmd.Printf("Listening on %s\n", kindColor.Sprint(addr))
			if cfg.StaticDir != "" {
				cmd.Printf("Serving static files from: %s\n", cfg.StaticDir)
			}
			if p := a.Plugins(); p != nil {
				cmd.Printf("Loaded %d plugins from: %s\n", len(p.List()), p.Dir())
			}
			return a.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory served at /")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Run without the trace database")
	cmd.Flags().BoolVar(&noPlugins, "no-plugins", false, "Run without gesture bindings")
	return cmd
}

// findWebDir looks for a web directory next to the working directory and
// under XDG_DATA_HOME. It returns "" when none exists.
func findWebDir() string {
	candidates := []string{"web", filepath.Join(xdg.DataHome, appName, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
