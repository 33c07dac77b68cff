package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xevion/rustdoc-mcp/internal/config"
	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/internal/corpus/corpustest"
	"github.com/Xevion/rustdoc-mcp/internal/search"
	"github.com/Xevion/rustdoc-mcp/internal/workspace"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

type fakeDiscoverer struct {
	disc *workspace.Discovery
}

func (f *fakeDiscoverer) Discover(context.Context, string) (*workspace.Discovery, error) {
	return f.disc, nil
}

// demoFixture builds a workspace crate with a re-exported struct, a
// documented function, and an enum.
func demoFixture() *corpustest.Fixture {
	foo := corpus.ID(2)
	f := corpustest.New(0).
		Module(0, "demo", 1, 4, 5, 6).
		Module(1, "m", 2).
		Struct(2, "Foo", []corpus.ID{3}).
		Field(3, "x", "i32").
		Function(5, "spawn", [][2]string{{"count", "usize"}}, "bool").
		Enum(6, "Mode", []corpus.ID{7, 8}).
		Variant(7, "Fast").
		Variant(8, "Safe").
		Path(0, "module", "demo").
		Path(1, "module", "demo", "m").
		Path(2, "struct", "demo", "m", "Foo").
		Path(5, "function", "demo", "spawn").
		Path(6, "enum", "demo", "Mode")
	f.TypeParam(2, "T", "Default")
	f.Use(4, "m::Foo", "Bar", &foo, false)
	f.Docs(5, "Spawns a worker.\n\nLong form docs.")
	return f
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	docPath := demoFixture().WriteFile(t, dir, "demo")

	disc := &workspace.Discovery{
		Root:          dir,
		Members:       []string{"demo"},
		DefaultCorpus: "demo",
		Targets: []workspace.Target{
			{Name: types.NewCrateName("demo"), Version: "0.1.0", DocPath: docPath},
		},
	}

	cfg := config.Default()
	cfg.IndexPath = filepath.Join(dir, "index.db")
	searcher, err := search.New(context.Background(), cfg.IndexPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = searcher.Close() })

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		manager:  workspace.NewManager(&fakeDiscoverer{disc: disc}, zerolog.Nop()),
		searcher: searcher,
		cfg:      cfg,
		log:      zerolog.Nop(),
	}
	s.registerTools()
	return s, dir
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func selectWorkspace(t *testing.T, s *Server, root string) {
	t.Helper()
	res, err := s.handleSetWorkspace(context.Background(),
		callRequest("set_workspace", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	payload := decodeResult(t, res)
	assert.Equal(t, "demo", payload["default_crate"])
}

func TestToolsRequireWorkspace(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleResolveItem(context.Background(),
		callRequest("resolve_item", map[string]interface{}{"path": "demo::Bar"}))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNoWorkspace, mcpErr.Code)
}

func TestSetWorkspaceValidatesPath(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleSetWorkspace(context.Background(),
		callRequest("set_workspace", map[string]interface{}{"path": "relative/path"}))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestResolveItemUnique(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleResolveItem(context.Background(),
		callRequest("resolve_item", map[string]interface{}{"path": "demo::Bar"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	assert.Equal(t, true, payload["found"])
	item := payload["item"].(map[string]interface{})
	assert.Equal(t, "struct", item["kind"])
	assert.Equal(t, "<T: Default>", item["generics"])
	fields := item["fields"].([]interface{})
	require.Len(t, fields, 1)
	field := fields[0].(map[string]interface{})
	assert.Equal(t, "x", field["name"])
	assert.Equal(t, "i32", field["type"])
}

func TestResolveItemFunctionSignature(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleResolveItem(context.Background(),
		callRequest("resolve_item", map[string]interface{}{"path": "demo::spawn"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	item := payload["item"].(map[string]interface{})
	assert.Equal(t, "fn spawn(count: usize) -> bool", item["signature"])
	assert.Equal(t, "Spawns a worker.", item["doc"])
}

func TestResolveItemNotFoundCarriesSuggestions(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleResolveItem(context.Background(),
		callRequest("resolve_item", map[string]interface{}{"path": "demo::Bax"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	assert.Equal(t, false, payload["found"])
	suggestions := payload["suggestions"].([]interface{})
	require.NotEmpty(t, suggestions)
	first := suggestions[0].(map[string]interface{})
	assert.Equal(t, "Bar", first["name"])
}

func TestResolveItemKindFilter(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleResolveItem(context.Background(),
		callRequest("resolve_item", map[string]interface{}{"path": "demo::Mode", "kind": "struct"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	assert.Equal(t, false, payload["found"])
	assert.Contains(t, payload["reason"], "enum")
}

func TestListChildrenOfEnum(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleListChildren(context.Background(),
		callRequest("list_children", map[string]interface{}{"path": "demo::Mode"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	assert.Equal(t, float64(2), payload["count"])
}

func TestListChildrenKindFilter(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleListChildren(context.Background(),
		callRequest("list_children", map[string]interface{}{"path": "demo", "kind": "function"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	items := payload["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "spawn", item["name"])
}

func TestSearchRanksAndReportsRelevance(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleSearch(context.Background(),
		callRequest("search", map[string]interface{}{"query": "spawn"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	results := payload["results"].([]interface{})
	require.NotEmpty(t, results)
	top := results[0].(map[string]interface{})
	assert.Equal(t, "demo::spawn", top["display_path"])
	assert.Equal(t, float64(100), top["relevance"])
}

func TestSearchEmptyResultsCarryTips(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleSearch(context.Background(),
		callRequest("search", map[string]interface{}{"query": "qqqqq"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	assert.Empty(t, payload["results"])
	assert.NotEmpty(t, payload["tips"])
}

func TestSearchUnknownCrate(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	_, err := s.handleSearch(context.Background(),
		callRequest("search", map[string]interface{}{"query": "spawn", "crate": "ghost"}))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeUnknownCrate, mcpErr.Code)
}

func TestListCrates(t *testing.T) {
	s, root := newTestServer(t)
	selectWorkspace(t, s, root)

	res, err := s.handleListCrates(context.Background(), callRequest("list_crates", nil))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	assert.Equal(t, float64(1), payload["count"])
	crates := payload["crates"].([]interface{})
	first := crates[0].(map[string]interface{})
	assert.Equal(t, "demo", first["name"])
	assert.Equal(t, "0.1.0", first["version"])
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []int{
		ErrorCodeInvalidParams,
		ErrorCodeInternalError,
		ErrorCodeNoWorkspace,
		ErrorCodeUnknownCrate,
	}
	seen := make(map[int]bool, len(codes))
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate error code %d", code)
		seen[code] = true
	}
}

func TestMCPErrorFormat(t *testing.T) {
	err := newMCPError(ErrorCodeInvalidParams, "invalid params", map[string]interface{}{"param": "path"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, "MCP error -32602: invalid params", mcpErr.Error())
	assert.NotNil(t, mcpErr.Data)
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		name     string
		required []string
	}{
		{setWorkspaceTool(), "set_workspace", []string{"path"}},
		{resolveItemTool(), "resolve_item", []string{"path"}},
		{listChildrenTool(), "list_children", []string{"path"}},
		{listMethodsTool(), "list_methods", []string{"path"}},
		{listTraitImplsTool(), "list_trait_impls", []string{"path"}},
		{searchTool(), "search", []string{"query"}},
		{listCratesTool(), "list_crates", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.tool.Name)
			assert.NotEmpty(t, tt.tool.Description)
			assert.Equal(t, "object", tt.tool.InputSchema.Type)
			assert.Equal(t, tt.required, tt.tool.InputSchema.Required)
		})
	}
}

func TestListMethodsGroupsBySource(t *testing.T) {
	dir := t.TempDir()
	f := corpustest.New(0).
		Module(0, "demo", 1, 5).
		Struct(1, "Client", nil, 2, 6).
		InherentImpl(2, "Client", 3).
		Method(3, "connect", "bool").
		Trait(5, "Display", 7).
		TraitImpl(6, "Display", 5, "Client", 4).
		Method(4, "fmt", "").
		Method(7, "fmt", "").
		Path(1, "struct", "demo", "Client")
	docPath := f.WriteFile(t, dir, "demo")

	cfg := config.Default()
	cfg.IndexPath = filepath.Join(dir, "index.db")
	searcher, err := search.New(context.Background(), cfg.IndexPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = searcher.Close() })

	s := &Server{
		mcp: server.NewMCPServer(ServerName, ServerVersion),
		manager: workspace.NewManager(&fakeDiscoverer{disc: &workspace.Discovery{
			Root:          dir,
			Members:       []string{"demo"},
			DefaultCorpus: "demo",
			Targets:       []workspace.Target{{Name: types.NewCrateName("demo"), DocPath: docPath}},
		}}, zerolog.Nop()),
		searcher: searcher,
		cfg:      cfg,
		log:      zerolog.Nop(),
	}
	s.registerTools()
	_, err = s.handleSetWorkspace(context.Background(),
		callRequest("set_workspace", map[string]interface{}{"path": dir}))
	require.NoError(t, err)

	res, err := s.handleListMethods(context.Background(),
		callRequest("list_methods", map[string]interface{}{"path": "demo::Client"}))

	require.NoError(t, err)
	payload := decodeResult(t, res)
	inherent := payload["inherent_methods"].([]interface{})
	require.Len(t, inherent, 1)
	traitMethods := payload["trait_methods"].(map[string]interface{})
	require.Contains(t, traitMethods, "Display")

	implsRes, err := s.handleListTraitImpls(context.Background(),
		callRequest("list_trait_impls", map[string]interface{}{"path": "demo::Client"}))
	require.NoError(t, err)
	implsPayload := decodeResult(t, implsRes)
	assert.Equal(t, []interface{}{"Display"}, implsPayload["traits"])
}
