// ABOUTME: Package gateway wires configuration, client, tracker, and protocol server together.
// ABOUTME: It owns the HTTP listener lifecycle including CORS, rate limiting, and shutdown.

// Package gateway assembles the bridge: an n8n API client, the in-memory run
// tracker, the tool registry, and the MCP protocol endpoint, served behind
// CORS and per-client rate limiting on a single HTTP listener.
package gateway
