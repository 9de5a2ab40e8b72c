// Package tracker keeps a bounded in-memory log of workflow runs started
// through this bridge. It is distinct from n8n's own execution history and
// never outlives the process.
package tracker
