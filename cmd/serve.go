package cmd

import (
	"fmt"

	"github.com/fgrehm/vscode-search-provider/internal/launch"
	"github.com/fgrehm/vscode-search-provider/internal/service"
	"github.com/fgrehm/vscode-search-provider/internal/storage"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search provider on the session bus (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&allFlavorsFlag, "all-flavors", false, "serve every enabled flavor, installed or not")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("starting", "version", Version)

	reader, err := storage.NewReader(logger)
	if err != nil {
		return err
	}
	flavors := service.SelectFlavors(cfg, allFlavorsFlag, logger)

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	defer func() { _ = conn.Close() }()

	svc := service.New(cfg, flavors, reader, launch.NewExecLauncher(logger), logger)
	return svc.Run(cmd.Context(), conn)
}
