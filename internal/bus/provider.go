// Package bus exports search providers on the D-Bus session bus.
package bus

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fgrehm/vscode-search-provider/internal/launch"
	"github.com/fgrehm/vscode-search-provider/internal/provider"
	"github.com/godbus/dbus/v5"
)

// Interface is the D-Bus interface implemented by search providers.
const Interface = "org.gnome.Shell.SearchProvider2"

// errSpawnFailed is the standard error name for a program that could not be
// started.
const errSpawnFailed = "org.freedesktop.DBus.Error.Spawn.Failed"

// Provider adapts a provider.Session to the SearchProvider2 interface. Every
// exported method is a D-Bus method.
type Provider struct {
	ctx     context.Context
	session *provider.Session
	logger  *slog.Logger
}

func newProvider(ctx context.Context, session *provider.Session, logger *slog.Logger) *Provider {
	return &Provider{ctx: ctx, session: session, logger: logger}
}

func (p *Provider) GetInitialResultSet(terms []string) ([]string, *dbus.Error) {
	ids, err := p.session.Search(p.ctx, terms)
	if err != nil {
		return nil, p.fail("GetInitialResultSet", err)
	}
	return ids, nil
}

func (p *Provider) GetSubsearchResultSet(previous, terms []string) ([]string, *dbus.Error) {
	ids, err := p.session.Subsearch(p.ctx, previous, terms)
	if err != nil {
		return nil, p.fail("GetSubsearchResultSet", err)
	}
	return ids, nil
}

func (p *Provider) GetResultMetas(ids []string) ([]map[string]dbus.Variant, *dbus.Error) {
	return metaVariants(p.session.Metas(ids)), nil
}

func (p *Provider) ActivateResult(id string, terms []string, timestamp uint32) *dbus.Error {
	if err := p.session.Activate(p.ctx, id); err != nil {
		return p.fail("ActivateResult", err)
	}
	return nil
}

func (p *Provider) LaunchSearch(terms []string, timestamp uint32) *dbus.Error {
	if err := p.session.LaunchSearch(p.ctx, terms); err != nil {
		return p.fail("LaunchSearch", err)
	}
	return nil
}

func (p *Provider) fail(method string, err error) *dbus.Error {
	p.logger.Debug("method failed", "method", method, "error", err)
	return toDBusError(err)
}

// metaVariants converts result metadata to the a{sv} dictionaries the shell
// expects. gicon carries a serialized themed icon name.
func metaVariants(metas []provider.Meta) []map[string]dbus.Variant {
	out := make([]map[string]dbus.Variant, 0, len(metas))
	for _, m := range metas {
		entry := map[string]dbus.Variant{
			"id":          dbus.MakeVariant(m.ID),
			"name":        dbus.MakeVariant(m.Name),
			"description": dbus.MakeVariant(m.Description),
		}
		if m.Icon != "" {
			entry["gicon"] = dbus.MakeVariant(m.Icon)
		}
		out = append(out, entry)
	}
	return out
}

func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	var launchErr *launch.LaunchError
	if errors.As(err, &launchErr) {
		return dbus.NewError(errSpawnFailed, []any{err.Error()})
	}
	return dbus.MakeFailedError(err)
}
