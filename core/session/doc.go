// Package session implements the streaming session: the owned state object
// a presentation layer drives to run turns against several providers at once.
//
// A turn fans out one stream per selected provider, tracks each provider
// through Loading, Streaming and then Completed or Errored, and settles when
// the last provider reaches a terminal phase. Settlement folds the result
// into the conversation history (conversation mode, one provider) or clears
// it (one-liner mode). Submitting a new turn cancels the previous one, and
// every write is checked against the current turn so a superseded stream can
// never touch newer state.
//
// Observers read state through [Session.Snapshot] or [Session.Subscribe];
// snapshots are deep copies and never change after they are published.
package session
