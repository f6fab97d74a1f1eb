package cmd

import (
	"fmt"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/launch"
	"github.com/fgrehm/vscode-search-provider/internal/provider"
	"github.com/fgrehm/vscode-search-provider/internal/storage"
	"github.com/fgrehm/vscode-search-provider/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	searchFlavorFlag string
	searchLimitFlag  int
	searchOpenFlag   bool
)

var searchCmd = &cobra.Command{
	Use:   "search TERM...",
	Short: "Search recent workspaces from the command line",
	Long: `Search recent workspaces the same way the shell does and print the
results, best match first. With --open, the best match is opened.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := provider.Options{Limit: cfg.Limit}
		if searchLimitFlag > 0 {
			opts.Limit = searchLimitFlag
		}
		flavors := cfg.EnabledFlavors()
		if searchFlavorFlag != "" {
			f, ok := flavor.Lookup(flavors, searchFlavorFlag)
			if !ok {
				return fmt.Errorf("unknown flavor %q", searchFlavorFlag)
			}
			opts.Flavor = &f
			flavors = []flavor.Flavor{f}
		}

		reader, err := storage.NewReader(logger)
		if err != nil {
			return err
		}
		index := workspace.NewIndex(flavors, reader, logger)

		spin := u.StartSpinner("Reading recent workspaces")
		_, err = index.Refresh(ctx)
		spin.Stop()
		if err != nil {
			return err
		}

		dispatcher := launch.NewDispatcher(launch.NewExecLauncher(logger), logger)
		session := provider.NewSession(index, dispatcher, opts, logger)

		ids, err := session.Search(ctx, args)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			u.Dim("No matches")
			return nil
		}

		headers := []string{"NAME", "FLAVOR", "LOCATION"}
		var rows [][]string
		for _, m := range session.Metas(ids) {
			r, _ := index.Get(m.ID)
			rows = append(rows, []string{m.Name, r.Flavor.ID, m.Description})
		}
		u.Table(headers, rows)

		if searchOpenFlag {
			return session.Activate(ctx, ids[0])
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchFlavorFlag, "flavor", "", "only search the given flavor")
	searchCmd.Flags().IntVarP(&searchLimitFlag, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchOpenFlag, "open", false, "open the best match")
}
