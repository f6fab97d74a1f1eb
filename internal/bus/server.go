package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/provider"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Conn is the part of *dbus.Conn the server uses.
type Conn interface {
	Export(v any, path dbus.ObjectPath, iface string) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	ReleaseName(name string) (dbus.ReleaseNameReply, error)
}

// Server exports one provider object per flavor under a single bus name.
type Server struct {
	conn    Conn
	busName string
	logger  *slog.Logger
}

// NewServer creates a Server for busName.
func NewServer(conn Conn, busName string, logger *slog.Logger) *Server {
	return &Server{conn: conn, busName: busName, logger: logger}
}

// RootPath returns the object path derived from busName under which all
// providers live.
func RootPath(busName string) dbus.ObjectPath {
	return dbus.ObjectPath("/" + strings.ReplaceAll(busName, ".", "/"))
}

// ObjectPath returns the absolute object path of f's provider.
func ObjectPath(busName string, f flavor.Flavor) dbus.ObjectPath {
	return RootPath(busName) + dbus.ObjectPath("/"+f.ObjectPath)
}

// Export makes session reachable at f's object path. ctx bounds the calls
// served by the object.
func (s *Server) Export(ctx context.Context, f flavor.Flavor, session *provider.Session) error {
	path := ObjectPath(s.busName, f)
	if !path.IsValid() {
		return fmt.Errorf("flavor %s: invalid object path %q", f.ID, path)
	}

	p := newProvider(ctx, session, s.logger.With("flavor", f.ID))
	if err := s.conn.Export(p, path, Interface); err != nil {
		return fmt.Errorf("exporting %s: %w", path, err)
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: Interface, Methods: introspect.Methods(p)},
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), path, introspect.IntrospectData.Name); err != nil {
		return fmt.Errorf("exporting introspection data at %s: %w", path, err)
	}

	s.logger.Info("registered provider", "flavor", f.ID, "desktop_id", f.DesktopID, "path", path)
	return nil
}

// Acquire requests the bus name. Another owner of the name is an error.
func (s *Server) Acquire() error {
	reply, err := s.conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("requesting bus name %s: %w", s.busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already taken (reply %d)", s.busName, reply)
	}
	s.logger.Info("acquired bus name", "name", s.busName)
	return nil
}

// Release gives up the bus name.
func (s *Server) Release() {
	if _, err := s.conn.ReleaseName(s.busName); err != nil {
		s.logger.Warn("releasing bus name", "name", s.busName, "error", err)
	}
}
