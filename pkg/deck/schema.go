package deck

import "fmt"

// Redis key pattern helpers
//
// Run history is namespaced by instance name so several deckhand setups can
// share one Redis server.
//
// Key pattern: deckhand:{instance}:run:{run_id}
// Index pattern: deckhand:{instance}:runs
// Channel pattern: deckhand:{instance}:entity_events

// RunKey returns the Redis key for a run record hash.
func RunKey(instanceName, runID string) string {
	return fmt.Sprintf("deckhand:%s:run:%s", instanceName, runID)
}

// RunsIndexKey returns the ZSET of run IDs scored by start time.
func RunsIndexKey(instanceName string) string {
	return fmt.Sprintf("deckhand:%s:runs", instanceName)
}

// EntityEventsChannel returns the Pub/Sub channel for per-entity progress.
func EntityEventsChannel(instanceName string) string {
	return fmt.Sprintf("deckhand:%s:entity_events", instanceName)
}
