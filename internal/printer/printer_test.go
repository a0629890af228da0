package printer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/deckhand/pkg/deck"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prevOut, prevErr, prevColor := Out, Err, color.NoColor
	var out, errBuf bytes.Buffer
	Out, Err, color.NoColor = &out, &errBuf, true
	t.Cleanup(func() { Out, Err, color.NoColor = prevOut, prevErr, prevColor })
	return &out, &errBuf
}

func TestError(t *testing.T) {
	t.Run("returns the title", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Manifest invalid", "Row 3 has no generate column", nil)
		require.EqualError(t, err, "Manifest invalid")
		assert.Contains(t, stderr.String(), "Row 3 has no generate column")
	})

	t.Run("single suggestion is printed plainly", func(t *testing.T) {
		_, stderr := capture(t)
		_ = Error("Boom", "", []string{"Run deckhand init"})
		assert.Contains(t, stderr.String(), "\nRun deckhand init\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("several suggestions are numbered", func(t *testing.T) {
		_, stderr := capture(t)
		_ = Error("Boom", "", []string{"one", "two"})
		assert.Contains(t, stderr.String(), "Either:\n  1. one\n  2. two\n")
	})
}

func TestErrorWithContext_SortsKeys(t *testing.T) {
	_, stderr := capture(t)
	err := ErrorWithContext("Denied", "", map[string]string{"resource": "tmpl", "op": "copy"}, nil)
	require.EqualError(t, err, "Denied")
	assert.Contains(t, stderr.String(), "  op: copy\n  resource: tmpl\n")
}

func TestSuccessAndWarning(t *testing.T) {
	out, _ := capture(t)
	Success("done\n")
	Success("✓ already marked\n")
	Warning("careful\n")
	assert.Equal(t, "✓ done\n✓ already marked\n⚠️  careful\n", out.String())
}

func TestSummary(t *testing.T) {
	capture(t)
	r := &deck.RunResult{
		RunID:      "run-1",
		Phase:      deck.PhaseAll,
		Successful: []string{"Acme"},
		Failed:     []deck.Failure{deck.NewFailure("Beta", &deck.NotFoundError{Kind: "tab", Name: "table-performance"})},
	}

	var buf bytes.Buffer
	Summary(&buf, r)
	s := buf.String()
	assert.Contains(t, s, "Run run-1 (phase all)")
	assert.Regexp(t, `Acme\s+ok`, s)
	assert.Regexp(t, `Beta\s+failed\s+not_found\s+tab not found: "table-performance"`, s)
	assert.Contains(t, s, "1 succeeded, 1 failed, 2 total")
}

func TestSummaryJSON(t *testing.T) {
	r := &deck.RunResult{RunID: "run-1", Phase: deck.PhaseL1, Successful: []string{"Acme"}, Failed: []deck.Failure{}}
	var buf bytes.Buffer
	require.NoError(t, SummaryJSON(&buf, r))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "l1", got["phase"])
}
