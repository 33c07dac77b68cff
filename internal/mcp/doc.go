// Package mcp exposes the engine over the Model Context Protocol: tool
// schemas, request handlers, and the summaries returned to the calling
// assistant. Each tool invocation runs inside its own request scope,
// which is closed on every exit path.
package mcp
