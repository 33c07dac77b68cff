package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Xevion/rustdoc-mcp/internal/query"
	"github.com/Xevion/rustdoc-mcp/internal/workspace"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNoWorkspace   = -32001 // set_workspace has not been called
	ErrorCodeUnknownCrate  = -32002 // Named crate is not part of the workspace
)

const (
	// maxDisambiguation caps how many ambiguous candidates are listed.
	maxDisambiguation = 10
	// maxTotalResults bounds recursive child listings.
	maxTotalResults = 500
)

// handleSetWorkspace handles the set_workspace tool invocation
func (s *Server) handleSetWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	session, err := s.manager.SetWorkspace(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "workspace discovery failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"root":          session.Root,
		"members":       session.Members,
		"default_crate": session.DefaultCorpus,
		"crates":        len(session.Targets),
	})), nil
}

// handleResolveItem handles the resolve_item tool invocation
func (s *Server) handleResolveItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	kindFilter := getStringDefault(args, "kind", "")

	session, scope, err := s.openScope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	outcome, err := s.resolve(ctx, scope, session, path, kindFilter)
	if err != nil {
		return nil, err
	}

	switch outcome.Kind {
	case query.Unique:
		summary, err := summarize(ctx, scope, outcome.Ref)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to summarize item", map[string]interface{}{"error": err.Error()})
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"found": true,
			"item":  summary,
		})), nil
	case query.Ambiguous:
		return mcp.NewToolResultText(formatJSON(disambiguationResponse(ctx, scope, outcome.Candidates))), nil
	case query.ExternalRef:
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"found":         false,
			"external":      true,
			"missing_crate": outcome.MissingCorpus,
			"reason":        outcome.Reason,
		})), nil
	default:
		return mcp.NewToolResultText(formatJSON(notFoundResponse(outcome))), nil
	}
}

// handleListChildren handles the list_children tool invocation
func (s *Server) handleListChildren(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", nil)
	}
	kindFilter := getStringDefault(args, "kind", "")
	recursive := getBoolDefault(args, "recursive", false)

	session, scope, err := s.openScope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	outcome, err := s.resolve(ctx, scope, session, path, "")
	if err != nil {
		return nil, err
	}
	if resp, done := nonUniqueResponse(ctx, scope, outcome); done {
		return mcp.NewToolResultText(formatJSON(resp)), nil
	}

	refs, err := collectChildren(ctx, scope, outcome.Ref, recursive)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list children", map[string]interface{}{"error": err.Error()})
	}

	items := make([]types.ItemSummary, 0, len(refs))
	for _, ref := range refs {
		if kindFilter != "" && ref.Kind() != types.ParseKind(kindFilter) {
			continue
		}
		summary, err := summarize(ctx, scope, ref)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to summarize item", map[string]interface{}{"error": err.Error()})
		}
		items = append(items, summary)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"parent": outcome.Ref.DisplayPath(),
		"count":  len(items),
		"items":  items,
	})), nil
}

// handleListMethods handles the list_methods tool invocation
func (s *Server) handleListMethods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", nil)
	}

	session, scope, err := s.openScope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	outcome, err := s.resolve(ctx, scope, session, path, "")
	if err != nil {
		return nil, err
	}
	if resp, done := nonUniqueResponse(ctx, scope, outcome); done {
		return mcp.NewToolResultText(formatJSON(resp)), nil
	}

	methods, err := scope.Methods(ctx, outcome.Ref)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list methods", map[string]interface{}{"error": err.Error()})
	}

	inherent := make([]types.ItemSummary, 0, len(methods))
	viaTrait := make(map[string][]types.ItemSummary)
	for _, m := range methods {
		summary, err := summarize(ctx, scope, m.Ref)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to summarize method", map[string]interface{}{"error": err.Error()})
		}
		if m.Inherent {
			inherent = append(inherent, summary)
		} else {
			viaTrait[m.Trait] = append(viaTrait[m.Trait], summary)
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"type":             outcome.Ref.DisplayPath(),
		"inherent_methods": inherent,
		"trait_methods":    viaTrait,
	})), nil
}

// handleListTraitImpls handles the list_trait_impls tool invocation
func (s *Server) handleListTraitImpls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", nil)
	}

	session, scope, err := s.openScope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	outcome, err := s.resolve(ctx, scope, session, path, "")
	if err != nil {
		return nil, err
	}
	if resp, done := nonUniqueResponse(ctx, scope, outcome); done {
		return mcp.NewToolResultText(formatJSON(resp)), nil
	}

	impls, err := scope.TraitImpls(ctx, outcome.Ref)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list trait impls", map[string]interface{}{"error": err.Error()})
	}

	traits := make([]string, 0, len(impls))
	for _, impl := range impls {
		traits = append(traits, impl.Trait)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"type":   outcome.Ref.DisplayPath(),
		"count":  len(traits),
		"traits": traits,
	})), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", s.cfg.SearchLimit)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	session, scope, err := s.openScope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	crate := getStringDefault(args, "crate", session.DefaultCorpus)
	if crate == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "crate parameter is required when the workspace has no member crate", nil)
	}

	results, err := s.searcher.Search(ctx, scope, crate, queryText, limit)
	if err != nil {
		if errors.Is(err, types.ErrUnknownCorpus) {
			return nil, newMCPError(ErrorCodeUnknownCrate, "crate is not part of this workspace", map[string]interface{}{
				"crate": crate,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{"error": err.Error()})
	}

	if len(results) == 0 {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"crate":   crate,
			"query":   queryText,
			"results": []types.ItemSummary{},
			"tips":    searchTips,
		})), nil
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"crate":   crate,
		"query":   queryText,
		"results": searchSummaries(results),
	})), nil
}

// handleListCrates handles the list_crates tool invocation
func (s *Server) handleListCrates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.manager.Current()
	if err != nil {
		return nil, noWorkspaceError()
	}

	crates := make([]map[string]interface{}, 0, len(session.Targets))
	for _, target := range session.Targets {
		crates = append(crates, map[string]interface{}{
			"name":    target.Name.Original(),
			"version": target.Version,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"root":   session.Root,
		"count":  len(crates),
		"crates": crates,
	})), nil
}

// openScope snapshots the current session and opens a request scope over
// it, pre-loading the workspace's member corpora in parallel so paths
// into the workspace's own crates resolve without a lazy load; dependency
// corpora still load on first touch. A member that fails to load here
// fails identically on the lazy path, where resolution reports it with
// more context, so the preload error is logged and not fatal. Every
// handler closes the scope on all exit paths.
func (s *Server) openScope(ctx context.Context) (*workspace.Session, *query.Scope, error) {
	session, err := s.manager.Current()
	if err != nil {
		return nil, nil, noWorkspaceError()
	}
	scope := query.NewScope(session)
	if err := scope.LoadAll(ctx, session.Members); err != nil {
		s.log.Warn().Err(err).Msg("member corpus preload failed")
	}
	return session, scope, nil
}

// resolve runs the path resolver and applies an optional kind filter to
// its candidates.
func (s *Server) resolve(ctx context.Context, scope *query.Scope, session *workspace.Session, path, kindFilter string) (query.Outcome, error) {
	resolver := query.NewResolver(scope, session.DefaultCorpus, session.CorpusNames())
	outcome, err := resolver.Resolve(ctx, path)
	if err != nil {
		return query.Outcome{}, newMCPError(ErrorCodeInternalError, "resolution failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if kindFilter == "" {
		return outcome, nil
	}

	want := types.ParseKind(kindFilter)
	switch outcome.Kind {
	case query.Unique:
		if outcome.Ref.Kind() != want {
			return query.Outcome{
				Kind:   query.NotFound,
				Reason: fmt.Sprintf("item exists but is a %s, not a %s", outcome.Ref.Kind(), want),
			}, nil
		}
	case query.Ambiguous:
		var kept []query.Ref
		for _, c := range outcome.Candidates {
			if c.Kind() == want {
				kept = append(kept, c)
			}
		}
		switch len(kept) {
		case 0:
			return query.Outcome{
				Kind:   query.NotFound,
				Reason: fmt.Sprintf("no candidate has kind %s", want),
			}, nil
		case 1:
			return query.Outcome{Kind: query.Unique, Ref: kept[0]}, nil
		default:
			return query.Outcome{Kind: query.Ambiguous, Candidates: kept}, nil
		}
	}
	return outcome, nil
}

// collectChildren gathers one level of children, or the whole module
// subtree when recursive, bounded by maxTotalResults.
func collectChildren(ctx context.Context, scope *query.Scope, ref query.Ref, recursive bool) ([]query.Ref, error) {
	children, err := scope.Children(ctx, ref)
	if err != nil || !recursive {
		return children, err
	}

	out := make([]query.Ref, 0, len(children))
	queue := children
	for len(queue) > 0 && len(out) < maxTotalResults {
		next := queue[0]
		queue = queue[1:]
		out = append(out, next)
		if next.Kind() == types.KindModule {
			sub, err := scope.Children(ctx, next)
			if err != nil {
				return nil, err
			}
			queue = append(queue, sub...)
		}
	}
	return out, nil
}

func noWorkspaceError() error {
	return newMCPError(ErrorCodeNoWorkspace, "no workspace selected; call set_workspace first", nil)
}

// newMCPError creates an MCP protocol error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is a directory
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// formatJSON renders a response map for the text result payload
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
