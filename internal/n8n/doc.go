// Package n8n provides a typed REST client for the upstream n8n API.
//
// The client performs no interpretation of response bodies: successful calls
// return the decoded JSON value unchanged, and every failure mode (network,
// HTTP >= 400, undecodable body) is normalized into a single *Error carrying
// the status code and the raw payload for diagnostics.
package n8n
