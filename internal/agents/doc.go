// Package agents is an HTTP client for the hosted agents service: agent
// lifecycle, threads, messages, runs, and run steps. It is deliberately
// thin glue — one attempt per call, no retries or batching — because the
// service owns all agent execution; the interaction loop decides what a
// failure means for the current turn.
package agents
