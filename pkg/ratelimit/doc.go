// Package ratelimit provides the two throttles used during extraction:
// a token bucket capping total requests per minute across all workers, and
// a per-worker randomized delay taken before each fetch so request timing
// does not look mechanical to the target site.
package ratelimit
