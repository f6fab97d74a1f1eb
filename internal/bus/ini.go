package bus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
)

// ProviderFileName returns the name of the search provider file for f.
func ProviderFileName(f flavor.Flavor) string {
	return f.ID + "-search-provider.ini"
}

// ProviderFile renders the search provider file that tells the shell where
// to find f's provider.
func ProviderFile(busName string, f flavor.Flavor) []byte {
	var b strings.Builder
	b.WriteString("[Shell Search Provider]\n")
	fmt.Fprintf(&b, "DesktopId=%s\n", f.DesktopID)
	fmt.Fprintf(&b, "BusName=%s\n", busName)
	fmt.Fprintf(&b, "ObjectPath=%s\n", ObjectPath(busName, f))
	b.WriteString("Version=2\n")
	return []byte(b.String())
}

// WriteProviderFiles writes one provider file per flavor into dir and
// returns the written paths.
func WriteProviderFiles(dir, busName string, flavors []flavor.Flavor) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	paths := make([]string, 0, len(flavors))
	for _, f := range flavors {
		path := filepath.Join(dir, ProviderFileName(f))
		if err := os.WriteFile(path, ProviderFile(busName, f), 0o644); err != nil {
			return paths, fmt.Errorf("writing provider file: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
