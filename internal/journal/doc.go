// Package journal persists conversation history to local per-thread JSON
// files. A journal mirrors one remote thread's messages so a session can be
// resumed later; the remote service remains the source of truth, the journal
// is an optimization. Reads are fail-open: a missing or corrupt file degrades
// to a fresh empty journal and never blocks the conversation.
package journal
