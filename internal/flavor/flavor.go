package flavor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Flavor describes one installed variant of the editor. All flavors share the
// same on-disk state schema and differ only in where that state lives and how
// the editor is launched.
type Flavor struct {
	// ID is a short stable identifier, used as the prefix of record ids.
	ID string `toml:"id"`

	// Label is the human readable name of the variant.
	Label string `toml:"label"`

	// DesktopID is the filename of the desktop entry of the variant.
	DesktopID string `toml:"desktop_id"`

	// Icon is the themed icon name shown next to results.
	Icon string `toml:"icon"`

	// ObjectPath is the path relative to the service root at which the
	// search provider for this flavor is exported.
	ObjectPath string `toml:"object_path"`

	// ConfigDirs lists the user configuration directories to probe for
	// persisted state. Relative entries are resolved against the user
	// config directory, "~/" is expanded to the home directory.
	ConfigDirs []string `toml:"config_dirs"`

	// Exec is the launch command template. See package launch for the
	// variables it may reference.
	Exec string `toml:"exec"`
}

// Builtin is the table of known flavors.
//
// Desktop ids must be unique, and so must object paths: each object path is
// advertised by exactly one provider file, which binds it to the app that is
// launched for its results.
var Builtin = []Flavor{
	{
		ID:         "code-oss",
		Label:      "Code OSS",
		DesktopID:  "code-oss.desktop",
		Icon:       "code-oss",
		ObjectPath: "arch/codeoss",
		ConfigDirs: []string{"Code - OSS"},
		Exec:       `code-oss --new-window "--${KIND}-uri" "${URI}"`,
	},
	{
		ID:         "code",
		Label:      "Visual Studio Code",
		DesktopID:  "code.desktop",
		Icon:       "vscode",
		ObjectPath: "microsoft/code",
		ConfigDirs: []string{"Code", "~/.var/app/com.visualstudio.code/config/Code"},
		Exec:       `code --new-window "--${KIND}-uri" "${URI}"`,
	},
	// The binary AUR package ships its own desktop id but shares the config
	// directory with the upstream package.
	{
		ID:         "visual-studio-code",
		Label:      "Visual Studio Code (AUR)",
		DesktopID:  "visual-studio-code.desktop",
		Icon:       "visual-studio-code",
		ObjectPath: "aur/visualstudiocode",
		ConfigDirs: []string{"Code"},
		Exec:       `code --new-window "--${KIND}-uri" "${URI}"`,
	},
	{
		ID:         "code-insiders",
		Label:      "Visual Studio Code Insiders",
		DesktopID:  "code-insiders.desktop",
		Icon:       "vscode-insiders",
		ObjectPath: "microsoft/codeinsiders",
		ConfigDirs: []string{"Code - Insiders"},
		Exec:       `code-insiders --new-window "--${KIND}-uri" "${URI}"`,
	},
	{
		ID:         "codium",
		Label:      "VSCodium",
		DesktopID:  "codium.desktop",
		Icon:       "vscodium",
		ObjectPath: "vscodium/codium",
		ConfigDirs: []string{"VSCodium", "~/.var/app/com.vscodium.codium/config/VSCodium"},
		Exec:       `codium --new-window "--${KIND}-uri" "${URI}"`,
	},
}

var (
	validID         = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	validObjectPath = regexp.MustCompile(`^[A-Za-z0-9_]+(/[A-Za-z0-9_]+)*$`)
)

// Validate checks that the flavor can be indexed, exported and launched.
func (f Flavor) Validate() error {
	if !validID.MatchString(f.ID) {
		return fmt.Errorf("flavor id %q: must be lowercase alphanumeric with hyphens", f.ID)
	}
	if f.DesktopID == "" || !strings.HasSuffix(f.DesktopID, ".desktop") {
		return fmt.Errorf("flavor %s: desktop id %q must end in .desktop", f.ID, f.DesktopID)
	}
	if !validObjectPath.MatchString(f.ObjectPath) {
		return fmt.Errorf("flavor %s: invalid object path %q", f.ID, f.ObjectPath)
	}
	if len(f.ConfigDirs) == 0 {
		return fmt.Errorf("flavor %s: no config dirs", f.ID)
	}
	if strings.TrimSpace(f.Exec) == "" {
		return fmt.Errorf("flavor %s: empty exec template", f.ID)
	}
	return nil
}

// ValidateAll validates every flavor and checks that ids, desktop ids and
// object paths are unique across the set.
func ValidateAll(flavors []Flavor) error {
	ids := make(map[string]bool)
	desktopIDs := make(map[string]bool)
	paths := make(map[string]bool)
	for _, f := range flavors {
		if err := f.Validate(); err != nil {
			return err
		}
		if ids[f.ID] {
			return fmt.Errorf("duplicate flavor id %q", f.ID)
		}
		if desktopIDs[f.DesktopID] {
			return fmt.Errorf("duplicate desktop id %q", f.DesktopID)
		}
		if paths[f.ObjectPath] {
			return fmt.Errorf("duplicate object path %q", f.ObjectPath)
		}
		ids[f.ID] = true
		desktopIDs[f.DesktopID] = true
		paths[f.ObjectPath] = true
	}
	return nil
}

// ResolveConfigDirs returns the absolute config directories of the flavor.
// userConfigDir and home are passed in so tests can point them elsewhere.
func (f Flavor) ResolveConfigDirs(userConfigDir, home string) []string {
	dirs := make([]string, 0, len(f.ConfigDirs))
	for _, d := range f.ConfigDirs {
		switch {
		case strings.HasPrefix(d, "~/"):
			dirs = append(dirs, filepath.Join(home, d[2:]))
		case filepath.IsAbs(d):
			dirs = append(dirs, d)
		default:
			dirs = append(dirs, filepath.Join(userConfigDir, d))
		}
	}
	return dirs
}

// Installed reports whether the desktop entry of the flavor exists in one of
// the XDG application directories.
func (f Flavor) Installed() bool {
	for _, dir := range ApplicationDirs() {
		if _, err := os.Stat(filepath.Join(dir, f.DesktopID)); err == nil {
			return true
		}
	}
	return false
}

// ApplicationDirs returns the XDG directories holding desktop entries, most
// specific first.
func ApplicationDirs() []string {
	var dirs []string
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range filepath.SplitList(dataDirs) {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	return dirs
}

// Lookup returns the flavor with the given id.
func Lookup(flavors []Flavor, id string) (Flavor, bool) {
	for _, f := range flavors {
		if f.ID == id {
			return f, true
		}
	}
	return Flavor{}, false
}
