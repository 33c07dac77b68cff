package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// setWorkspaceTool returns the tool definition for set_workspace
func setWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "set_workspace",
		Description: "Select a Rust workspace root; discovers its crates and dependencies for all other tools",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the workspace root (the directory containing Cargo.toml)",
				},
			},
			Required: []string{"path"},
		},
	}
}

// resolveItemTool returns the tool definition for resolve_item
func resolveItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_item",
		Description: "Resolve a qualified item path (e.g. 'serde::de::Deserialize' or 'crate::Config') to its documentation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Item path; '::' or '.' separated. First segment may be a crate name or the 'crate' alias for the active project",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict matches to one item kind",
					"enum": []string{
						"module", "struct", "enum", "union", "function",
						"trait", "type_alias", "constant", "static",
					},
				},
			},
			Required: []string{"path"},
		},
	}
}

// listChildrenTool returns the tool definition for list_children
func listChildrenTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_children",
		Description: "List the items contained in a module or type: module members, struct fields, enum variants, and the methods of a type's impl blocks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the containing item",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Only return children of this kind",
				},
				"recursive": map[string]interface{}{
					"type":        "boolean",
					"description": "Recurse into child modules",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// listMethodsTool returns the tool definition for list_methods
func listMethodsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_methods",
		Description: "List the methods callable on a type, grouped into inherent methods and methods from trait impls",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the type",
				},
			},
			Required: []string{"path"},
		},
	}
}

// listTraitImplsTool returns the tool definition for list_trait_impls
func listTraitImplsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_trait_impls",
		Description: "List the traits a type implements",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the type",
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Ranked full-text search over item names and documentation in one crate",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms; identifiers are split on case and separator boundaries",
				},
				"crate": map[string]interface{}{
					"type":        "string",
					"description": "Crate to search; defaults to the active project crate",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// listCratesTool returns the tool definition for list_crates
func listCratesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_crates",
		Description: "List the crates discovered in the active workspace, with versions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
