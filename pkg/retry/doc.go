// Package retry implements bounded retry with pluggable backoff strategies.
// The orchestrator uses it around item discovery, where a transient network
// failure should not immediately become a fatal run error.
package retry
