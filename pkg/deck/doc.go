// Package deck holds the value types shared by every stage of the report
// pipeline, plus the Redis-backed run history.
//
// # Overview
//
// A run reads the entities manifest into a list of Entity values, resolves a
// DriveLayout once, and then drives each entity through two stages:
//
//   - L1 merges the entity's raw CSV and workbook files into a clone of the
//     data template spreadsheet, producing a MergeOutcome.
//   - L2 clones the report template deck and resolves every placeholder Token
//     against the entity's EntityDataset, producing a RenderOutcome.
//
// The aggregate RunResult lists successful and failed entities in manifest
// order. Failures carry a FailureKind derived from the typed errors in this
// package (ValidationError, NotFoundError, PlaceholderResolutionError,
// TransientAPIError, PermissionError).
//
// # Redis Schema
//
// Run history is optional. When configured, every run is stored as a hash and
// indexed in a sorted set, and per-entity progress is published on a channel:
//
//	deckhand:{instance}:run:{run_id}    hash, see RunToHash
//	deckhand:{instance}:runs            zset, score = started_at_ms
//	deckhand:{instance}:entity_events   pub/sub, JSON EntityEvent
//
// # Usage Example
//
//	client, err := deck.NewClientFromURL("redis://localhost:6379/0", "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	runs, err := client.ListRuns(ctx, 10)
package deck
