package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fgrehm/vscode-search-provider/internal/workspace"
	"github.com/tidwall/jsonc"
)

// Entry is one raw recently opened entry before normalization.
type Entry struct {
	URI   string
	Kind  workspace.Kind
	Label string
}

// storageDocument is the subset of storage.json we read. Everything else in
// the document is ignored.
type storageDocument struct {
	OpenedPathsList json.RawMessage `json:"openedPathsList"`
}

// openedPathsList changed shape over time: up to VS Code 1.54 recent folders
// were in workspaces3, later releases use entries.
type openedPathsList struct {
	Workspaces3 []json.RawMessage `json:"workspaces3"`
	Entries     []json.RawMessage `json:"entries"`
}

type listEntry struct {
	FolderURI string `json:"folderUri"`
	FileURI   string `json:"fileUri"`
	Workspace *struct {
		ID         string `json:"id"`
		ConfigPath string `json:"configPath"`
	} `json:"workspace"`
	Label string `json:"label"`
}

type legacyWorkspace struct {
	ID            string `json:"id"`
	ConfigURIPath string `json:"configURIPath"`
}

const workspaceFileSuffix = ".code-workspace"

// ParseStorage parses the contents of a storage.json file. Comments and
// trailing commas are tolerated. A document without an openedPathsList has
// no entries.
func ParseStorage(data []byte) ([]Entry, []error, error) {
	var doc storageDocument
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.OpenedPathsList) == 0 || string(doc.OpenedPathsList) == "null" {
		return nil, nil, nil
	}
	return ParseList(doc.OpenedPathsList)
}

// ParseList parses an opened paths list document, the value stored under
// history.recentlyOpenedPathsList in state.vscdb and under openedPathsList
// in storage.json.
//
// Entries that cannot be decoded are skipped and reported in the second
// return value; only a list that is not an object at all is an error.
func ParseList(data []byte) ([]Entry, []error, error) {
	var list openedPathsList
	if err := json.Unmarshal(jsonc.ToJSON(data), &list); err != nil {
		return nil, nil, fmt.Errorf("%w: opened paths list: %v", ErrMalformed, err)
	}

	var (
		entries []Entry
		skipped []error
	)
	for i, raw := range list.Entries {
		e, ok, err := decodeEntry(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("entries[%d]: %w", i, err))
			continue
		}
		if ok {
			entries = append(entries, e)
		}
	}
	for i, raw := range list.Workspaces3 {
		e, err := decodeLegacy(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("workspaces3[%d]: %w", i, err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped, nil
}

// decodeEntry returns ok=false for entries that carry nothing we can open.
func decodeEntry(raw json.RawMessage) (Entry, bool, error) {
	var le listEntry
	if err := json.Unmarshal(raw, &le); err != nil {
		return Entry{}, false, err
	}
	switch {
	case le.FolderURI != "":
		return Entry{URI: le.FolderURI, Kind: workspace.KindFolder, Label: le.Label}, true, nil
	case le.Workspace != nil && le.Workspace.ConfigPath != "":
		return Entry{URI: le.Workspace.ConfigPath, Kind: workspace.KindWorkspace, Label: le.Label}, true, nil
	case le.FileURI != "":
		return Entry{URI: le.FileURI, Kind: workspace.KindFile, Label: le.Label}, true, nil
	}
	return Entry{}, false, nil
}

func decodeLegacy(raw json.RawMessage) (Entry, error) {
	var uri string
	if err := json.Unmarshal(raw, &uri); err == nil {
		kind := workspace.KindFolder
		if strings.HasSuffix(uri, workspaceFileSuffix) {
			kind = workspace.KindWorkspace
		}
		return Entry{URI: uri, Kind: kind}, nil
	}

	var lw legacyWorkspace
	if err := json.Unmarshal(raw, &lw); err != nil {
		return Entry{}, err
	}
	if lw.ConfigURIPath == "" {
		return Entry{}, fmt.Errorf("workspace %q without configURIPath", lw.ID)
	}
	return Entry{URI: lw.ConfigURIPath, Kind: workspace.KindWorkspace}, nil
}
