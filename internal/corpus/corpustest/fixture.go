// Package corpustest builds minimal rustdoc JSON exports for tests.
package corpustest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
)

// Item is one entry of the fixture's index, in raw JSON shape.
type Item = map[string]any

// Fixture assembles a rustdoc JSON export.
type Fixture struct {
	Root          corpus.ID
	Version       string
	Items         map[corpus.ID]Item
	Paths         map[corpus.ID][]string
	PathKinds     map[corpus.ID]string
	PathCrates    map[corpus.ID]uint32
	Externals     map[uint32]string
	FormatVersion uint32
}

// New starts a fixture whose root module has the given id.
func New(root corpus.ID) *Fixture {
	return &Fixture{
		Root:          root,
		Items:         make(map[corpus.ID]Item),
		Paths:         make(map[corpus.ID][]string),
		PathKinds:     make(map[corpus.ID]string),
		PathCrates:    make(map[corpus.ID]uint32),
		Externals:     make(map[uint32]string),
		FormatVersion: corpus.SupportedFormatVersion,
	}
}

func (f *Fixture) add(id corpus.ID, name any, inner map[string]any) *Fixture {
	f.Items[id] = Item{
		"id":         id,
		"crate_id":   0,
		"name":       name,
		"visibility": "public",
		"docs":       nil,
		"inner":      inner,
	}
	return f
}

// Docs attaches a documentation body to an already-added item.
func (f *Fixture) Docs(id corpus.ID, docs string) *Fixture {
	f.Items[id]["docs"] = docs
	return f
}

// Private marks an already-added item as crate-visible.
func (f *Fixture) Private(id corpus.ID) *Fixture {
	f.Items[id]["visibility"] = "crate"
	return f
}

// TypeParam declares a generic type parameter with trait bounds on an
// already-added item.
func (f *Fixture) TypeParam(id corpus.ID, name string, bounds ...string) *Fixture {
	for _, payload := range f.Items[id]["inner"].(map[string]any) {
		variant, ok := payload.(map[string]any)
		if !ok {
			continue
		}
		generics, ok := variant["generics"].(map[string]any)
		if !ok {
			generics = map[string]any{"params": []any{}, "where_predicates": []any{}}
			variant["generics"] = generics
		}
		bs := make([]any, 0, len(bounds))
		for _, b := range bounds {
			bs = append(bs, map[string]any{
				"trait_bound": map[string]any{"trait": map[string]any{"path": b, "id": 0}},
			})
		}
		generics["params"] = append(generics["params"].([]any), map[string]any{
			"name": name,
			"kind": map[string]any{"type": map[string]any{"bounds": bs, "default": nil}},
		})
	}
	return f
}

// Path records a canonical path for an item in the paths table.
func (f *Fixture) Path(id corpus.ID, kind string, segments ...string) *Fixture {
	f.Paths[id] = segments
	f.PathKinds[id] = kind
	return f
}

// ExternalPath records a paths-table entry for an item that lives in
// another crate and has no local index entry.
func (f *Fixture) ExternalPath(id corpus.ID, crateID uint32, kind string, segments ...string) *Fixture {
	f.Paths[id] = segments
	f.PathKinds[id] = kind
	f.PathCrates[id] = crateID
	return f
}

// External registers an external crate name under a crate_id.
func (f *Fixture) External(crateID uint32, name string) *Fixture {
	f.Externals[crateID] = name
	return f
}

func (f *Fixture) Module(id corpus.ID, name string, children ...corpus.ID) *Fixture {
	if children == nil {
		children = []corpus.ID{}
	}
	return f.add(id, name, map[string]any{
		"module": map[string]any{"is_crate": id == f.Root, "items": children},
	})
}

func (f *Fixture) Struct(id corpus.ID, name string, fields []corpus.ID, impls ...corpus.ID) *Fixture {
	if fields == nil {
		fields = []corpus.ID{}
	}
	if impls == nil {
		impls = []corpus.ID{}
	}
	return f.add(id, name, map[string]any{
		"struct": map[string]any{
			"kind":  map[string]any{"plain": map[string]any{"fields": fields, "has_stripped_fields": false}},
			"impls": impls,
		},
	})
}

func (f *Fixture) Union(id corpus.ID, name string, fields []corpus.ID, impls ...corpus.ID) *Fixture {
	if fields == nil {
		fields = []corpus.ID{}
	}
	if impls == nil {
		impls = []corpus.ID{}
	}
	return f.add(id, name, map[string]any{
		"union": map[string]any{
			"fields":              fields,
			"impls":               impls,
			"has_stripped_fields": false,
		},
	})
}

func (f *Fixture) Field(id corpus.ID, name, primitive string) *Fixture {
	return f.add(id, name, map[string]any{
		"struct_field": map[string]any{"primitive": primitive},
	})
}

func (f *Fixture) Enum(id corpus.ID, name string, variants []corpus.ID, impls ...corpus.ID) *Fixture {
	if variants == nil {
		variants = []corpus.ID{}
	}
	if impls == nil {
		impls = []corpus.ID{}
	}
	return f.add(id, name, map[string]any{
		"enum": map[string]any{"variants": variants, "impls": impls},
	})
}

func (f *Fixture) Variant(id corpus.ID, name string) *Fixture {
	return f.add(id, name, map[string]any{
		"variant": map[string]any{"kind": "plain"},
	})
}

// Function adds a free function taking primitive-typed parameters.
func (f *Fixture) Function(id corpus.ID, name string, params [][2]string, output string) *Fixture {
	inputs := make([]any, 0, len(params))
	for _, p := range params {
		inputs = append(inputs, []any{p[0], map[string]any{"primitive": p[1]}})
	}
	sig := map[string]any{"inputs": inputs, "output": nil}
	if output != "" {
		sig["output"] = map[string]any{"primitive": output}
	}
	return f.add(id, name, map[string]any{
		"function": map[string]any{"sig": sig},
	})
}

// Method adds a function whose first parameter is a &self receiver.
func (f *Fixture) Method(id corpus.ID, name string, output string) *Fixture {
	sig := map[string]any{
		"inputs": []any{[]any{"self", map[string]any{
			"borrowed_ref": map[string]any{
				"lifetime":   nil,
				"is_mutable": false,
				"type":       map[string]any{"generic": "Self"},
			},
		}}},
		"output": nil,
	}
	if output != "" {
		sig["output"] = map[string]any{"primitive": output}
	}
	return f.add(id, name, map[string]any{
		"function": map[string]any{"sig": sig},
	})
}

func (f *Fixture) Trait(id corpus.ID, name string, items ...corpus.ID) *Fixture {
	if items == nil {
		items = []corpus.ID{}
	}
	return f.add(id, name, map[string]any{
		"trait": map[string]any{"items": items, "implementations": []corpus.ID{}},
	})
}

// InherentImpl adds an impl block without a trait.
func (f *Fixture) InherentImpl(id corpus.ID, forStruct string, items ...corpus.ID) *Fixture {
	if items == nil {
		items = []corpus.ID{}
	}
	return f.add(id, nil, map[string]any{
		"impl": map[string]any{
			"trait":       nil,
			"for":         map[string]any{"resolved_path": map[string]any{"path": forStruct, "id": 0}},
			"items":       items,
			"is_negative": false,
		},
	})
}

// TraitImpl adds an impl block for the named trait.
func (f *Fixture) TraitImpl(id corpus.ID, traitName string, traitID corpus.ID, forStruct string, items ...corpus.ID) *Fixture {
	if items == nil {
		items = []corpus.ID{}
	}
	return f.add(id, nil, map[string]any{
		"impl": map[string]any{
			"trait":       map[string]any{"path": traitName, "id": traitID},
			"for":         map[string]any{"resolved_path": map[string]any{"path": forStruct, "id": 0}},
			"items":       items,
			"is_negative": false,
		},
	})
}

// Use adds a re-export. target may be nil for unresolved sources.
func (f *Fixture) Use(id corpus.ID, source, name string, target *corpus.ID, glob bool) *Fixture {
	return f.add(id, nil, map[string]any{
		"use": map[string]any{
			"source":  source,
			"name":    name,
			"id":      target,
			"is_glob": glob,
		},
	})
}

// Marshal renders the export as JSON.
func (f *Fixture) Marshal(t *testing.T) []byte {
	t.Helper()
	index := make(map[string]any, len(f.Items))
	for id, item := range f.Items {
		index[strconv.FormatUint(uint64(id), 10)] = item
	}
	paths := make(map[string]any, len(f.Paths))
	for id, segs := range f.Paths {
		kind := f.PathKinds[id]
		if kind == "" {
			kind = "module"
		}
		paths[strconv.FormatUint(uint64(id), 10)] = map[string]any{
			"crate_id": f.PathCrates[id],
			"path":     segs,
			"kind":     kind,
		}
	}
	externals := make(map[string]any, len(f.Externals))
	for crateID, name := range f.Externals {
		externals[strconv.FormatUint(uint64(crateID), 10)] = map[string]any{"name": name}
	}
	var version any
	if f.Version != "" {
		version = f.Version
	}
	data, err := json.Marshal(map[string]any{
		"root":            f.Root,
		"crate_version":   version,
		"index":           index,
		"paths":           paths,
		"external_crates": externals,
		"format_version":  f.FormatVersion,
	})
	require.NoError(t, err)
	return data
}

// WriteFile writes the export under dir and returns its path.
func (f *Fixture) WriteFile(t *testing.T, dir, crateName string) string {
	t.Helper()
	path := filepath.Join(dir, crateName+".json")
	require.NoError(t, os.WriteFile(path, f.Marshal(t), 0o644))
	return path
}

// Load writes the fixture and loads it back through the real loader.
func (f *Fixture) Load(t *testing.T, crateName string) *corpus.Corpus {
	t.Helper()
	path := f.WriteFile(t, t.TempDir(), crateName)
	c, err := corpus.Load(path, crateName)
	require.NoError(t, err)
	return c
}
