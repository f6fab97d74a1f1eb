package launch

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/fgrehm/vscode-search-provider/internal/workspace"
	"github.com/moby/buildkit/frontend/dockerfile/shell"
)

// Variables available to launch templates.
const (
	VarURI       = "URI"        // canonical workspace URI
	VarLocalPath = "LOCAL_PATH" // local path, or the URI for remote workspaces
	VarKind      = "KIND"       // "folder" or "file", as in --folder-uri / --file-uri
	VarName      = "NAME"       // display name
)

var workspaceVars = []string{VarURI, VarLocalPath}

// templateEnv implements shell.EnvGetter over a fixed set of variables.
type templateEnv map[string]string

func (e templateEnv) Get(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

func (e templateEnv) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	return keys
}

func recordEnv(r workspace.Record) templateEnv {
	localPath := r.Path
	if localPath == "" {
		localPath = r.URI
	}
	kind := "file"
	if r.Kind == workspace.KindFolder {
		kind = "folder"
	}
	return templateEnv{
		VarURI:       r.URI,
		VarLocalPath: localPath,
		VarKind:      kind,
		VarName:      r.Name,
	}
}

// Expand turns the launch template into an argument vector for r. Templates
// use shell quoting and ${VAR} expansion. A template that references neither
// the URI nor the local path gets the URI appended as last argument.
func Expand(template string, r workspace.Record) ([]string, error) {
	env := recordEnv(r)
	lex := shell.NewLex('\\')

	argv, err := lex.ProcessWords(template, env)
	if err != nil {
		return nil, fmt.Errorf("expanding launch template %q: %w", template, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("launch template %q is empty", template)
	}

	// Expanding again with the workspace variables blanked out tells
	// whether the template refers to the workspace at all.
	probe := maps.Clone(env)
	for _, v := range workspaceVars {
		probe[v] = ""
	}
	blank, err := lex.ProcessWords(template, probe)
	if err != nil {
		return nil, fmt.Errorf("expanding launch template %q: %w", template, err)
	}
	if slices.Equal(argv, blank) {
		argv = append(argv, r.URI)
	}
	return argv, nil
}

// Program returns the executable named by the template, without arguments.
func Program(template string) (string, error) {
	argv, err := shell.NewLex('\\').ProcessWords(template, templateEnv{})
	if err != nil {
		return "", fmt.Errorf("expanding launch template %q: %w", template, err)
	}
	if len(argv) == 0 {
		return "", errors.New("launch template is empty")
	}
	return argv[0], nil
}
