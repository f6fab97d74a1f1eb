package workspace

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
)

// Kind classifies what a recent entry opens.
type Kind string

const (
	// KindFolder is a plain folder opened as a workspace.
	KindFolder Kind = "folder"
	// KindWorkspace is a multi-root .code-workspace definition.
	KindWorkspace Kind = "workspace"
	// KindFile is a single file.
	KindFile Kind = "file"
)

// Record is one recently used workspace of one flavor.
type Record struct {
	// ID is derived from the flavor id and the canonical URI, so repeated
	// discovery of the same entry yields the same id.
	ID string

	// Name is the human readable label.
	Name string

	// URI is the canonical location as understood by the editor.
	URI string

	// Path is the local filesystem path for file URIs, empty for remote ones.
	Path string

	Kind Kind

	// Flavor is the editor variant the record was discovered in.
	Flavor flavor.Flavor

	// LastUsed is zero when unknown.
	LastUsed time.Time
}

// RecordID derives the record id for uri within the given flavor.
func RecordID(flavorID, uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return fmt.Sprintf("%s-%x", flavorID, sum[:8])
}

// Description returns the secondary line shown below the name: the local
// path when there is one, the URI otherwise.
func (r Record) Description() string {
	if r.Path != "" {
		return r.Path
	}
	return r.URI
}
