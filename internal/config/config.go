package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
)

// ErrInvalid is wrapped by errors reporting an unusable configuration.
var ErrInvalid = errors.New("invalid configuration")

// DefaultBusName is the well-known name the service requests on the session
// bus.
const DefaultBusName = "dev.fgrehm.SearchProvider.VSCode"

// Config is the service configuration, read from config.toml.
type Config struct {
	// BusName is the session bus name to acquire.
	BusName string `toml:"bus_name"`

	// Limit caps the number of results returned per search.
	Limit int `toml:"limit"`

	// RefreshOnSearch re-reads all stores on every initial search.
	RefreshOnSearch bool `toml:"refresh_on_search"`

	// Watch refreshes the index when a store file changes.
	Watch bool `toml:"watch"`

	// RefreshInterval refreshes the index periodically. Zero disables
	// periodic refreshes, unless watching fails, in which case
	// FallbackRefreshInterval is used.
	RefreshInterval Duration `toml:"refresh_interval"`

	// Debounce is how long the watcher waits for a burst of changes to
	// settle before refreshing.
	Debounce Duration `toml:"debounce"`

	// LockFile overrides the path of the single-instance lock.
	LockFile string `toml:"lock_file"`

	// Disable lists flavor ids not to serve.
	Disable []string `toml:"disable"`

	// Flavors declares additional flavors. A flavor with the id of a
	// builtin one replaces it.
	Flavors []flavor.Flavor `toml:"flavor"`

	// Origin is the file the configuration was loaded from, empty when
	// defaults are in use.
	Origin string `toml:"-"`
}

// FallbackRefreshInterval is the periodic refresh interval used when the
// file watcher cannot be started and no interval is configured.
const FallbackRefreshInterval = 30 * time.Second

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BusName:  DefaultBusName,
		Limit:    20,
		Watch:    true,
		Debounce: Duration(500 * time.Millisecond),
	}
}

// EnabledFlavors returns the flavors to serve: the builtin table with overrides
// applied, followed by additional flavors, minus disabled ones.
func (c *Config) EnabledFlavors() []flavor.Flavor {
	disabled := make(map[string]bool, len(c.Disable))
	for _, id := range c.Disable {
		disabled[id] = true
	}
	custom := make(map[string]flavor.Flavor, len(c.Flavors))
	for _, f := range c.Flavors {
		custom[f.ID] = f
	}

	var out []flavor.Flavor
	for _, f := range flavor.Builtin {
		if override, ok := custom[f.ID]; ok {
			f = override
			delete(custom, f.ID)
		}
		if !disabled[f.ID] {
			out = append(out, f)
		}
	}
	for _, f := range c.Flavors {
		if _, ok := custom[f.ID]; ok && !disabled[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.BusName == "" {
		return fmt.Errorf("%w: bus_name is empty", ErrInvalid)
	}
	if c.Limit < 1 {
		return fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalid, c.Limit)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("%w: refresh_interval must not be negative", ErrInvalid)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce must not be negative", ErrInvalid)
	}
	known := make(map[string]bool)
	for _, f := range flavor.Builtin {
		known[f.ID] = true
	}
	for _, f := range c.Flavors {
		known[f.ID] = true
	}
	for _, id := range c.Disable {
		if !known[id] {
			return fmt.Errorf("%w: cannot disable unknown flavor %q", ErrInvalid, id)
		}
	}
	if err := flavor.ValidateAll(c.EnabledFlavors()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
