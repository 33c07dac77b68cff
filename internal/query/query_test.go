package query_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/internal/corpus/corpustest"
	"github.com/Xevion/rustdoc-mcp/internal/query"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// fileLoader maps corpus names to export files on disk.
type fileLoader struct {
	files map[string]string
}

func (l *fileLoader) LoadCorpus(_ context.Context, name string) (*corpus.Corpus, error) {
	key := types.NormalizeCrateName(name)
	path, ok := l.files[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownCorpus, name)
	}
	return corpus.Load(path, name)
}

func newLoader(t *testing.T, fixtures map[string]*corpustest.Fixture) *fileLoader {
	t.Helper()
	dir := t.TempDir()
	files := make(map[string]string, len(fixtures))
	for name, f := range fixtures {
		files[types.NormalizeCrateName(name)] = f.WriteFile(t, dir, name)
	}
	return &fileLoader{files: files}
}

// demoFixture builds:
//
//	crate demo {
//	    mod m { struct Foo { x: i32 } }
//	    pub use m::Foo as Bar;
//	}
func demoFixture() *corpustest.Fixture {
	foo := corpus.ID(2)
	f := corpustest.New(0).
		Module(0, "demo", 1, 4).
		Module(1, "m", 2).
		Struct(2, "Foo", []corpus.ID{3}).
		Field(3, "x", "i32").
		Path(0, "module", "demo").
		Path(1, "module", "demo", "m").
		Path(2, "struct", "demo", "m", "Foo")
	f.Use(4, "m::Foo", "Bar", &foo, false)
	return f
}

func TestResolveCanonicalPath(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::m::Foo")

	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	assert.Equal(t, "Foo", outcome.Ref.DisplayName())
	assert.Equal(t, types.KindStruct, outcome.Ref.Kind())
}

func TestResolveThroughRenamingReExport(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})
	ctx := context.Background()

	viaAlias, err := resolver.Resolve(ctx, "demo::Bar")
	require.NoError(t, err)
	require.Equal(t, query.Unique, viaAlias.Kind)
	assert.Equal(t, "Bar", viaAlias.Ref.DisplayName())
	assert.Equal(t, types.KindStruct, viaAlias.Ref.Kind())

	canonical, err := resolver.Resolve(ctx, "demo::m::Foo")
	require.NoError(t, err)
	require.Equal(t, query.Unique, canonical.Kind)

	// Same underlying item regardless of the import path taken.
	assert.True(t, viaAlias.Ref.Equal(canonical.Ref))
}

func TestResolveBareIdentifierUsesDefaultCorpus(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "Bar")

	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	assert.Equal(t, types.KindStruct, outcome.Ref.Kind())
}

func TestResolveProjectAlias(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "crate::m::Foo")

	require.NoError(t, err)
	assert.Equal(t, query.Unique, outcome.Kind)
}

func TestResolveDotSeparator(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo.m.Foo")

	require.NoError(t, err)
	assert.Equal(t, query.Unique, outcome.Kind)
}

func TestResolveLenientCase(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::m::foo")

	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	assert.Equal(t, "Foo", outcome.Ref.DisplayName())
}

func TestResolveMissReturnsSuggestions(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::m::Fop")

	require.NoError(t, err)
	require.Equal(t, query.NotFound, outcome.Kind)
	require.NotEmpty(t, outcome.Suggestions)
	assert.Equal(t, "Foo", outcome.Suggestions[0].Name)
}

func TestResolveMissWithoutSuggestionsCarriesReason(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::m::zzzzzz")

	require.NoError(t, err)
	require.Equal(t, query.NotFound, outcome.Kind)
	assert.Empty(t, outcome.Suggestions)
	assert.NotEmpty(t, outcome.Reason)
}

func TestResolveAmbiguous(t *testing.T) {
	// A function and a module share the name "parse".
	f := corpustest.New(0).
		Module(0, "demo", 1, 2).
		Module(1, "parse").
		Function(2, "parse", nil, "")
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::parse")

	require.NoError(t, err)
	require.Equal(t, query.Ambiguous, outcome.Kind)
	require.Len(t, outcome.Candidates, 2)
	kinds := map[types.ItemKind]bool{}
	for _, c := range outcome.Candidates {
		kinds[c.Kind()] = true
	}
	assert.True(t, kinds[types.KindModule])
	assert.True(t, kinds[types.KindFunction])
}

func TestSelfGlobTerminates(t *testing.T) {
	// mod a { pub use a::*; struct Inside; }
	a := corpus.ID(1)
	f := corpustest.New(0).
		Module(0, "demo", 1).
		Module(1, "a", 2, 3).
		Struct(3, "Inside", nil)
	f.Use(2, "a", "a", &a, true)
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()

	c, err := scope.Load(context.Background(), "demo")
	require.NoError(t, err)
	children, err := scope.Children(context.Background(), scope.NewRef(c, 1, ""))

	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Inside", children[0].DisplayName())
}

func TestGlobCycleTerminatesAndDeduplicates(t *testing.T) {
	// mod a { pub use b::*; struct A; }  mod b { pub use a::*; struct B; }
	aID, bID := corpus.ID(1), corpus.ID(2)
	f := corpustest.New(0).
		Module(0, "demo", 1, 2).
		Module(1, "a", 3, 4).
		Module(2, "b", 5, 6).
		Struct(4, "InA", nil).
		Struct(6, "InB", nil)
	f.Use(3, "b", "b", &bID, true)
	f.Use(5, "a", "a", &aID, true)
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()

	c, err := scope.Load(context.Background(), "demo")
	require.NoError(t, err)
	children, err := scope.Children(context.Background(), scope.NewRef(c, 1, ""))

	require.NoError(t, err)
	names := make([]string, len(children))
	for i, ch := range children {
		names[i] = ch.DisplayName()
	}
	assert.ElementsMatch(t, []string{"InA", "InB"}, names)
}

func TestChildrenDeduplicatesAcrossImportPaths(t *testing.T) {
	// Foo is declared in m and re-exported at the same level via use.
	foo := corpus.ID(2)
	f := corpustest.New(0).
		Module(0, "demo", 1, 3, 4).
		Module(1, "m", 2).
		Struct(2, "Foo", nil)
	f.Use(3, "m::Foo", "Foo", &foo, false)
	f.Use(4, "m::Foo", "FooAgain", &foo, false)
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()

	c, err := scope.Load(context.Background(), "demo")
	require.NoError(t, err)
	children, err := scope.Children(context.Background(), scope.NewRef(c, c.Root(), ""))

	require.NoError(t, err)
	// m plus exactly one appearance of Foo.
	require.Len(t, children, 2)
}

func TestResolveUnknownCorpusReExport(t *testing.T) {
	// demo re-exports serde::Serialize but serde was never discovered.
	ext := corpus.ID(9)
	f := corpustest.New(0).
		Module(0, "demo", 1).
		External(1, "serde").
		ExternalPath(9, 1, "trait", "serde", "Serialize")
	f.Use(1, "serde::Serialize", "Serialize", &ext, false)
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Serialize")

	require.NoError(t, err)
	require.Equal(t, query.ExternalRef, outcome.Kind)
	assert.Equal(t, "serde", outcome.MissingCorpus)
	assert.NotEmpty(t, outcome.Reason)
}

func TestCrossCorpusReExportResolves(t *testing.T) {
	// demo re-exports util::Helper, and util is a discovered corpus.
	ext := corpus.ID(9)
	demo := corpustest.New(0).
		Module(0, "demo", 1).
		External(1, "util").
		ExternalPath(9, 1, "struct", "util", "Helper")
	demo.Use(1, "util::Helper", "Helper", &ext, false)

	util := corpustest.New(0).
		Module(0, "util", 1).
		Struct(1, "Helper", nil).
		Path(1, "struct", "util", "Helper")

	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demo, "util": util})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo", "util"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Helper")

	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	assert.Equal(t, "util", outcome.Ref.Corpus().Name().Original())
	assert.Equal(t, types.KindStruct, outcome.Ref.Kind())
}

func TestCrossCorpusReExportPrefersPathsTableKind(t *testing.T) {
	// util declares a function and a struct both named Helper; the
	// paths-table entry says the re-exported item is the struct.
	ext := corpus.ID(9)
	demo := corpustest.New(0).
		Module(0, "demo", 1).
		External(1, "util").
		ExternalPath(9, 1, "struct", "util", "Helper")
	demo.Use(1, "util::Helper", "Helper", &ext, false)

	util := corpustest.New(0).
		Module(0, "util", 1, 2).
		Function(1, "Helper", nil, "").
		Struct(2, "Helper", nil).
		Path(2, "struct", "util", "Helper")

	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demo, "util": util})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo", "util"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Helper")

	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	assert.Equal(t, types.KindStruct, outcome.Ref.Kind())
}

func TestEndToEndAliasFields(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Bar")
	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	require.Equal(t, types.KindStruct, outcome.Ref.Kind())

	fields, err := scope.Children(context.Background(), outcome.Ref)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "x", fields[0].DisplayName())
	assert.Equal(t, "i32", fields[0].Item().Inner.StructField.Render())
}

func TestMethodsTagSource(t *testing.T) {
	f := corpustest.New(0).
		Module(0, "demo", 1, 5).
		Struct(1, "Client", nil, 2, 6).
		InherentImpl(2, "Client", 3).
		Method(3, "connect", "bool").
		Trait(5, "Display", 7).
		TraitImpl(6, "Display", 5, "Client", 4).
		Method(4, "fmt", "").
		Method(7, "fmt", "")
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()

	c, err := scope.Load(context.Background(), "demo")
	require.NoError(t, err)
	methods, err := scope.Methods(context.Background(), scope.NewRef(c, 1, ""))

	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "connect", methods[0].Ref.DisplayName())
	assert.True(t, methods[0].Inherent)
	assert.Equal(t, "fmt", methods[1].Ref.DisplayName())
	assert.Equal(t, "Display", methods[1].Trait)

	impls, err := scope.TraitImpls(context.Background(), scope.NewRef(c, 1, ""))
	require.NoError(t, err)
	require.Len(t, impls, 1)
	assert.Equal(t, "Display", impls[0].Trait)
}

func TestResolveMethodThroughType(t *testing.T) {
	// struct Pool { impl Pool { fn acquire } } resolved as demo::Pool::acquire.
	f := corpustest.New(0).
		Module(0, "demo", 1).
		Struct(1, "Pool", nil, 2).
		InherentImpl(2, "Pool", 3).
		Method(3, "acquire", "bool")
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Pool::acquire")

	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	assert.Equal(t, "acquire", outcome.Ref.DisplayName())
	assert.Equal(t, types.KindFunction, outcome.Ref.Kind())
}

func TestStructChildrenMergeFieldsAndMethods(t *testing.T) {
	f := corpustest.New(0).
		Module(0, "demo", 1).
		Struct(1, "Pool", []corpus.ID{4}, 2).
		Field(4, "retries", "u32").
		InherentImpl(2, "Pool", 3).
		Method(3, "acquire", "bool")
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()

	c, err := scope.Load(context.Background(), "demo")
	require.NoError(t, err)
	children, err := scope.Children(context.Background(), scope.NewRef(c, 1, ""))

	require.NoError(t, err)
	names := make([]string, len(children))
	for i, ch := range children {
		names[i] = ch.DisplayName()
	}
	assert.Equal(t, []string{"retries", "acquire"}, names)
}

func TestEnumChildrenMergeVariantsAndMethods(t *testing.T) {
	f := corpustest.New(0).
		Module(0, "demo", 1).
		Enum(1, "Mode", []corpus.ID{2, 3}, 4).
		Variant(2, "Fast").
		Variant(3, "Safe").
		InherentImpl(4, "Mode", 5).
		Method(5, "parse", "bool")
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Mode::parse")
	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)

	c, _ := scope.Corpus("demo")
	children, err := scope.Children(context.Background(), scope.NewRef(c, 1, ""))
	require.NoError(t, err)
	names := make([]string, len(children))
	for i, ch := range children {
		names[i] = ch.DisplayName()
	}
	assert.Equal(t, []string{"Fast", "Safe", "parse"}, names)
}

func TestUnionChildrenAndKind(t *testing.T) {
	f := corpustest.New(0).
		Module(0, "demo", 1).
		Union(1, "Value", []corpus.ID{4}, 2).
		Field(4, "bits", "u64").
		InherentImpl(2, "Value", 3).
		Method(3, "as_bits", "u64")
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": f})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Value")
	require.NoError(t, err)
	require.Equal(t, query.Unique, outcome.Kind)
	assert.Equal(t, types.KindUnion, outcome.Ref.Kind())

	children, err := scope.Children(context.Background(), outcome.Ref)
	require.NoError(t, err)
	names := make([]string, len(children))
	for i, ch := range children {
		names[i] = ch.DisplayName()
	}
	assert.Equal(t, []string{"bits", "as_bits"}, names)

	methods, err := scope.Methods(context.Background(), outcome.Ref)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "as_bits", methods[0].Ref.DisplayName())
}

func TestScopeTeardownInvalidatesRefs(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	resolver := query.NewResolver(scope, "demo", []string{"demo"})

	outcome, err := resolver.Resolve(context.Background(), "demo::Bar")
	require.NoError(t, err)
	ref := outcome.Ref
	require.True(t, ref.Valid())

	scope.Close()

	assert.False(t, ref.Valid())
	assert.Nil(t, ref.Item())
	assert.Nil(t, ref.Corpus())
	assert.Empty(t, ref.DisplayName())
	assert.Equal(t, types.KindUnknown, ref.Kind())

	_, err = scope.Load(context.Background(), "demo")
	assert.ErrorIs(t, err, types.ErrScopeClosed)

	_, err = ref.ResolveFurther(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrScopeClosed)
}

func TestLoadAllLoadsInParallel(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{
		"demo": demoFixture(),
		"util": corpustest.New(0).Module(0, "util"),
	})
	scope := query.NewScope(loader)
	defer scope.Close()

	require.NoError(t, scope.LoadAll(context.Background(), []string{"demo", "util"}))
	assert.Equal(t, []string{"demo", "util"}, scope.LoadedNames())
}

func TestLoadAllSurfacesUnknownCorpus(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{"demo": demoFixture()})
	scope := query.NewScope(loader)
	defer scope.Close()

	err := scope.LoadAll(context.Background(), []string{"demo", "ghost"})
	assert.ErrorIs(t, err, types.ErrUnknownCorpus)
}

func TestLoadAllFailureDoesNotAbortSiblings(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{
		"demo": demoFixture(),
		"util": corpustest.New(0).Module(0, "util"),
	})
	scope := query.NewScope(loader)
	defer scope.Close()

	err := scope.LoadAll(context.Background(), []string{"ghost", "demo", "util"})

	require.ErrorIs(t, err, types.ErrUnknownCorpus)
	// The failed corpus is the only casualty; its siblings finish loading.
	_, ok := scope.Corpus("demo")
	assert.True(t, ok)
	_, ok = scope.Corpus("util")
	assert.True(t, ok)
}

func TestCrateNameNormalizationAtFirstSegment(t *testing.T) {
	loader := newLoader(t, map[string]*corpustest.Fixture{
		"my-crate": corpustest.New(0).Module(0, "my_crate", 1).Struct(1, "Thing", nil),
	})
	scope := query.NewScope(loader)
	defer scope.Close()
	resolver := query.NewResolver(scope, "my-crate", []string{"my-crate"})

	outcome, err := resolver.Resolve(context.Background(), "my_crate::Thing")

	require.NoError(t, err)
	assert.Equal(t, query.Unique, outcome.Kind)
}
