package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"xcmcp/pkg/logging"

	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var builtinDefinitions embed.FS

// BuiltinDefinitions returns the definitions compiled into the binary.
func BuiltinDefinitions() (Definitions, error) {
	sub, err := fs.Sub(builtinDefinitions, "definitions")
	if err != nil {
		return Definitions{}, err
	}
	return ReadDefinitions(sub)
}

// LoadDefinitions returns the builtin definitions with every file from dir
// appended. An empty dir yields the builtin set only.
func LoadDefinitions(dir string) (Definitions, error) {
	defs, err := BuiltinDefinitions()
	if err != nil {
		return Definitions{}, fmt.Errorf("failed to read builtin definitions: %w", err)
	}
	if dir == "" {
		return defs, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return Definitions{}, fmt.Errorf("definitions directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Definitions{}, fmt.Errorf("definitions path %s is not a directory", dir)
	}

	extra, err := ReadDefinitions(os.DirFS(dir))
	if err != nil {
		return Definitions{}, fmt.Errorf("failed to read definitions from %s: %w", dir, err)
	}
	logging.Info("Catalog", "Loaded %d workflows and %d tools from %s", len(extra.Workflows), len(extra.Tools), dir)
	return defs.Merge(extra), nil
}

// ReadDefinitions parses every *.yaml / *.yml file at the root of fsys in
// lexical order and merges them.
func ReadDefinitions(fsys fs.FS) (Definitions, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return Definitions{}, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var merged Definitions
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return Definitions{}, err
		}
		defs, err := ParseDefinitions(data)
		if err != nil {
			return Definitions{}, fmt.Errorf("%s: %w", name, err)
		}
		merged = merged.Merge(defs)
	}
	return merged, nil
}

// ParseDefinitions decodes one definitions document. Unknown keys are errors
// so typos in hand-written files surface at startup.
func ParseDefinitions(data []byte) (Definitions, error) {
	var defs Definitions
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return Definitions{}, err
	}
	return defs, nil
}

// Merge returns d with other's workflows and tools appended. Duplicates are
// kept so Load can report them.
func (d Definitions) Merge(other Definitions) Definitions {
	return Definitions{
		Workflows: append(append([]WorkflowDefinition(nil), d.Workflows...), other.Workflows...),
		Tools:     append(append([]ToolDefinition(nil), d.Tools...), other.Tools...),
	}
}
