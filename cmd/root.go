package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fgrehm/vscode-search-provider/internal/config"
	"github.com/fgrehm/vscode-search-provider/internal/ui"
	"github.com/spf13/cobra"
)

var (
	debugFlag      bool
	configFlag     string
	allFlavorsFlag bool
	logger         *slog.Logger
)

// Version variables injected at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Built   = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "vscode-search-provider",
	Short:   "Search recent VS Code workspaces from the GNOME Shell overview",
	Version: Version,
	Args:    cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The service logs its lifecycle; one-shot commands stay quiet.
		level := slog.LevelWarn
		if !cmd.HasParent() || cmd.Name() == "serve" {
			level = slog.LevelInfo
		}
		if debugFlag {
			level = slog.LevelDebug
		}
		logger = newLogger(level)
		return nil
	},
	RunE:          runServe,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default $XDG_CONFIG_HOME/vscode-search-provider/config.toml)")
	rootCmd.Flags().BoolVar(&allFlavorsFlag, "all-flavors", false, "serve every enabled flavor, installed or not")
	rootCmd.SetVersionTemplate(fmt.Sprintf("vscode-search-provider version %s\n", Version))
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with signal handling.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger = newLogger(slog.LevelWarn)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		u := newUI()
		u.Error(err.Error())
		fmt.Fprintf(os.Stderr, "\nvscode-search-provider %s (%s)\n", Version, Commit)
		os.Exit(1)
	}
}

// newLogger creates a text logger on stderr with timestamps in UTC.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.TimeValue(t.UTC())
				}
			}
			return a
		},
	}))
}

// newUI creates a UI that writes to stdout and stderr.
func newUI() *ui.UI {
	return ui.New(os.Stdout, os.Stderr)
}

// loadConfig reads the file given with --config, or the default one.
func loadConfig() (*config.Config, error) {
	path := configFlag
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Origin != "" {
		logger.Debug("loaded config", "path", cfg.Origin)
	}
	return cfg, nil
}

// versionString returns a formatted version string for display.
// For dev builds, includes commit and build timestamp.
func versionString() string {
	v := "vscode-search-provider " + Version
	if strings.Contains(Version, "-dev") && Commit != "unknown" {
		v += " (" + Commit
		if Built != "unknown" {
			v += ", " + Built
		}
		v += ")"
	}
	return v
}
