package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/logger"
)

const appName = "keyflick"

var (
	Version     = "0.1.0"
	CommitSha   = "unknown"
	FullVersion = Version + "-" + CommitSha
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	pluginDir  string
	logLevel   string
	logFile    string

	logCloser io.Closer
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
	kindColor = color.New(color.FgCyan)
)

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Single-key touch gesture recognizer",
		Long: color.New(color.FgHiMagenta).Sprintf(
			"Recognizes taps, swipes, return swipes and circles on a single key. %s",
			color.New(color.FgBlue).Sprintf("(%s)", FullVersion),
		),
		Version:       FullVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.initLogging(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if g.logCloser != nil {
				return g.logCloser.Close()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", config.DefaultPath(), "Settings file (TOML)")
	flags.StringVar(&g.dbPath, "db", config.DefaultDBPath(), "Trace database")
	flags.StringVar(&g.pluginDir, "plugins", config.DefaultPluginDir(), "Plugin directory")
	flags.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&g.logFile, "log-file", "", "Append logs to this file instead of stderr")

	rootCmd.AddCommand(
		newServeCmd(g),
		newClassifyCmd(g),
		newReplayCmd(g),
		newImportCmd(g),
		newEvalCmd(g),
		newConfigCmd(g),
		newPluginsCmd(g),
		newBindingsCmd(g),
	)
	return rootCmd
}

func (g *globalFlags) initLogging(stderr io.Writer) error {
	if _, ok := logger.ParseLevel(g.logLevel); !ok {
		return fmt.Errorf("unknown log level %q", g.logLevel)
	}

	if g.logFile == "" {
		logger.Init(stderr, g.logLevel)
		return nil
	}

	f, err := logger.InitFile(g.logFile, g.logLevel)
	if err != nil {
		return err
	}
	g.logCloser = f
	return nil
}

// settings loads the config file, falling back to defaults when it is
// missing.
func (g *globalFlags) settings() (config.Settings, error) {
	return config.Load(g.configPath)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Error executing command", "error", err)
		fmt.Fprintln(os.Stderr, failColor.Sprint("error:"), err)
		os.Exit(1)
	}
}
