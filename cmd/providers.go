package cmd

import (
	"strings"

	"github.com/fgrehm/vscode-search-provider/internal/bus"
	"github.com/spf13/cobra"
)

var providersIniFlag string

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List search providers, or write their provider files",
	Long: `List the enabled flavors and whether their app is installed.

With --ini, write one search provider file per flavor into the given
directory, usually /usr/share/gnome-shell/search-providers or
~/.local/share/gnome-shell/search-providers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := newUI()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flavors := cfg.EnabledFlavors()

		if providersIniFlag != "" {
			u.Header("Writing provider files to " + providersIniFlag)
			paths, err := bus.WriteProviderFiles(providersIniFlag, cfg.BusName, flavors)
			for _, p := range paths {
				u.Success(p)
			}
			return err
		}

		if len(flavors) == 0 {
			u.Dim("No flavors enabled")
			return nil
		}

		headers := []string{"FLAVOR", "LABEL", "DESKTOP ID", "INSTALLED", "CONFIG"}
		var rows [][]string
		for _, f := range flavors {
			rows = append(rows, []string{
				f.ID,
				f.Label,
				f.DesktopID,
				u.YesNo(f.Installed()),
				strings.Join(f.ConfigDirs, ", "),
			})
		}
		u.Table(headers, rows)
		return nil
	},
}

func init() {
	providersCmd.Flags().StringVar(&providersIniFlag, "ini", "", "write provider files into `DIR`")
}
