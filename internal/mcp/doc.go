// Package mcp serves briefd's capabilities as Model Context Protocol tools.
//
// Three tools are registered on a github.com/modelcontextprotocol/go-sdk/mcp
// server and exposed over stdio:
//
//   - generate_tasks: project brief in, ordered task list out
//   - read_document: base64 file content and filename in, plain text out
//   - caption_image: base64 image in, description out
//
// Binary payloads travel base64-encoded because MCP tool arguments are JSON.
package mcp
