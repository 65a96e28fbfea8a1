// Package server implements the MCP (Model Context Protocol) server for
// math-expression detection on scanned pages.
//
// This package provides a JSON-RPC 2.0 server that exposes page
// segmentation, classification, and training through the MCP protocol, so
// MCP-compatible clients can drive the detector interactively.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Page Information:
//   - page_info: Load a page and get metadata
//
// Segmentation:
//   - segment_page: Split a page into connected-component blobs
//   - extract_region: Crop a region as base64 PNG
//
// Classification:
//   - classify_blob: Evaluate the bad-region classifier for one blob
//   - detect_math: Run trained detection over a page
//   - render_overlay: Draw per-blob verdicts onto the page
//
// Training:
//   - train: Train the detector on the configured corpus
//
// # Page Caching
//
// The server maintains an in-memory cache of decoded pages, keyed by path
// and reused across tool calls. The cache persists for the lifetime of the
// server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
