package deck

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Redis stores run records as flat string hashes. List fields are
// JSON-encoded into single hash fields.

// RunToHash converts a RunRecord into Redis hash fields.
func RunToHash(r *RunRecord) (map[string]interface{}, error) {
	successful := r.Successful
	if successful == nil {
		successful = []string{}
	}
	successfulJSON, err := json.Marshal(successful)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal successful entities: %w", err)
	}

	failed := r.Failed
	if failed == nil {
		failed = []Failure{}
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal failed entities: %w", err)
	}

	return map[string]interface{}{
		"id":             r.ID,
		"phase":          string(r.Phase),
		"root_id":        r.RootID,
		"started_at_ms":  r.StartedAtMs,
		"finished_at_ms": r.FinishedAtMs,
		"successful":     string(successfulJSON),
		"failed":         string(failedJSON),
	}, nil
}

// HashToRun converts Redis hash fields back into a RunRecord.
func HashToRun(hash map[string]string) (*RunRecord, error) {
	startedAt, err := strconv.ParseInt(hash["started_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at_ms field: %w", err)
	}

	var finishedAt int64
	if v := hash["finished_at_ms"]; v != "" {
		finishedAt, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid finished_at_ms field: %w", err)
		}
	}

	successful := []string{}
	if v := hash["successful"]; v != "" {
		if err := json.Unmarshal([]byte(v), &successful); err != nil {
			return nil, fmt.Errorf("failed to unmarshal successful: %w", err)
		}
	}

	failed := []Failure{}
	if v := hash["failed"]; v != "" {
		if err := json.Unmarshal([]byte(v), &failed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed: %w", err)
		}
	}

	return &RunRecord{
		ID:           hash["id"],
		Phase:        Phase(hash["phase"]),
		RootID:       hash["root_id"],
		StartedAtMs:  startedAt,
		FinishedAtMs: finishedAt,
		Successful:   successful,
		Failed:       failed,
	}, nil
}
