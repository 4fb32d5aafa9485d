package patterns

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-classify/internal/utils"
)

// Loader produces a freshly compiled dictionary.
type Loader interface {
	LoadDictionary(ctx context.Context) (*Dictionary, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*Dictionary, error)

// LoadDictionary implements Loader.
func (f LoaderFunc) LoadDictionary(ctx context.Context) (*Dictionary, error) {
	return f(ctx)
}

// FileLoader reads a dictionary file on every call.
type FileLoader struct {
	Path   string
	Logger *slog.Logger
}

// LoadDictionary implements Loader.
func (l FileLoader) LoadDictionary(ctx context.Context) (*Dictionary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(l.Path, l.Logger)
}

// LoadFile reads a YAML or JSON dictionary file. Two layouts are accepted
// under the "systems" and "units" keys (any letter case):
//
//	systems:
//	  Shahed: '\b(shahed|geran)\b'
//
//	systems:
//	  - key: Shahed
//	    pattern: '\b(shahed|geran)\b'
//
// Mapping order is preserved, so a JSON object's key order is the match order.
func LoadFile(path string, logger *slog.Logger) (*Dictionary, error) {
	const op = "patterns.LoadFile"
	if path == "" {
		return nil, utils.NewAppError(op, "pattern file path is empty", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, utils.NewAppError(op, fmt.Sprintf("pattern file %s not found", path), err)
		}
		return nil, utils.NewAppError(op, "read pattern file", err)
	}
	systems, units, err := Parse(data)
	if err != nil {
		return nil, utils.NewAppError(op, fmt.Sprintf("parse %s", path), err)
	}
	return Load(logger, systems, units), nil
}

// Parse decodes dictionary sources from YAML or JSON bytes.
func Parse(data []byte) (systems, units []Source, err error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name, value := root.Content[i], root.Content[i+1]
		switch strings.ToLower(name.Value) {
		case "systems":
			if systems, err = decodeGroup(value); err != nil {
				return nil, nil, fmt.Errorf("systems: %w", err)
			}
		case "units":
			if units, err = decodeGroup(value); err != nil {
				return nil, nil, fmt.Errorf("units: %w", err)
			}
		}
	}
	return systems, units, nil
}

func decodeGroup(node *yaml.Node) ([]Source, error) {
	switch node.Kind {
	case yaml.MappingNode:
		out := make([]Source, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: pattern for %q must be a string", value.Line, key.Value)
			}
			out = append(out, Source{Key: key.Value, Pattern: value.Value})
		}
		return out, nil
	case yaml.SequenceNode:
		var out []Source
		if err := node.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("line %d: expected a mapping or a list", node.Line)
}
