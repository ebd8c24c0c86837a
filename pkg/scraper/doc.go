// Package scraper orchestrates a retailer's scrape run: item discovery (or
// cache), resume filtering against the checkpoint, bounded-concurrency
// extraction with per-worker request pacing, per-item failure isolation,
// periodic checkpointing, and final result assembly.
//
// Per-retailer discovery and extraction logic live outside this core; the
// orchestrator receives them as functions along with a client handle from the
// caller's registry. Per-item errors are always absorbed and recorded. Only
// discovery failure unwinds to the caller, and even then whatever checkpoint
// exists on disk stays intact for a future resume.
package scraper
