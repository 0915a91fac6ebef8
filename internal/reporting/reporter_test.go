// File: internal/reporting/reporter_test.go
package reporting_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/reporting"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func sampleSummary() schemas.SessionSummary {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	results := []schemas.HealingResult{
		{ID: "r1", TestName: "login works", FilePath: "tests/login.spec.ts", Outcome: schemas.OutcomeVerified, Success: true, Attempts: 1, Confidence: 85},
		{ID: "r2", TestName: "cart total", FilePath: "tests/cart.spec.ts", Outcome: schemas.OutcomeRolledBack, Attempts: 2, Confidence: 65, Reason: "test still fails"},
		{ID: "r3", TestName: "db seed", FilePath: "tests/seed.spec.ts", Outcome: schemas.OutcomeSkipped, Reason: "infrastructure failure"},
	}
	return schemas.NewSessionSummary("sess-1", started, started.Add(90*time.Second), results)
}

func TestNew_Stdout(t *testing.T) {
	for _, path := range []string{"", "stdout"} {
		r, err := reporting.New("json", path)
		require.NoError(t, err)
		assert.NoError(t, r.Close(), "closing stdout must be a no-op")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")

	r, err := reporting.New("json", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleSummary()))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded schemas.SessionSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sess-1", decoded.SessionID)
	assert.Len(t, decoded.Results, 3)
	assert.Equal(t, 1, decoded.Counts[schemas.OutcomeVerified])
}

func TestNew_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sarif")

	r, err := reporting.New("sarif", path)
	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: sarif")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is created for an unsupported format")
}

func TestNew_FileCreationFailure(t *testing.T) {
	r, err := reporting.New("text", t.TempDir())
	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestJSONReporter_EmptyResultsIsArray(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewJSONReporter(buf)

	require.NoError(t, r.Write(schemas.NewSessionSummary("empty", time.Time{}, time.Time{}, nil)))
	require.NoError(t, r.Close())

	assert.Contains(t, buf.String(), `"results": []`)
	assert.True(t, buf.closed)
}

func TestTextReporter_Table(t *testing.T) {
	buf := &bufferCloser{}
	r, err := reporting.NewWithWriter("text", buf)
	require.NoError(t, err)

	require.NoError(t, r.Write(sampleSummary()))
	out := buf.String()

	assert.Contains(t, out, "Healing session sess-1")
	assert.Contains(t, out, "duration 1m30s")
	for _, want := range []string{"TEST", "OUTCOME", "login works", "tests/cart.spec.ts", "rolled_back", "test still fails"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "Healed 1 of 3 (rolled_back=1, skipped=1, verified=1)")
	assert.NotContains(t, out, "\x1b[", "a non-terminal writer gets plain text")
}

func TestTextReporter_NoResults(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewTextReporter(buf)

	require.NoError(t, r.Write(schemas.NewSessionSummary("s", time.Time{}, time.Time{}, nil)))

	assert.Contains(t, buf.String(), "No failed tests to heal.")
	assert.Contains(t, buf.String(), "Healed 0 of 0")
	assert.NotContains(t, buf.String(), "duration")
}

func TestTextReporter_LongCellsAreClipped(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewTextReporter(buf)
	long := "a very long test name that keeps going and going well past any sensible width"
	summary := schemas.NewSessionSummary("s", time.Time{}, time.Time{}, []schemas.HealingResult{
		{TestName: long, Outcome: schemas.OutcomeErrored},
	})

	require.NoError(t, r.Write(summary))

	assert.NotContains(t, buf.String(), long)
	assert.Contains(t, buf.String(), "...")
}

func TestNewStream_DoesNotCloseWriter(t *testing.T) {
	buf := &bufferCloser{}
	r, err := reporting.NewStream("json", buf)
	require.NoError(t, err)

	require.NoError(t, r.Write(sampleSummary()))
	require.NoError(t, r.Close())

	assert.False(t, buf.closed)
	assert.Contains(t, buf.String(), `"session_id": "sess-1"`)
}
