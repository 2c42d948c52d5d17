// Package memory defines the conversation history log and the Provider
// interface for storing it. Entries keep the full structured answer for
// local rendering; [Sanitize] flattens them to the plain-text history the
// backend expects, and [ToShow] derives the "resume where we left off" view.
// The bundled implementation lives in the sibling package
// [github.com/leofalp/agentspace/providers/memory/inmemory].
package memory
