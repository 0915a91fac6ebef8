// File: internal/audit/audit_test.go
package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/suture/api/schemas"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	return NewLogger(filepath.Join(t.TempDir(), "nested", "dir", "audit.log"), zaptest.NewLogger(t))
}

func TestLogAppendsOneLinePerEntry(t *testing.T) {
	l := newTestLogger(t)
	fixed := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	require.NoError(t, l.Log(ActionFileModified, "/app/tests/a.spec.ts", "applied fix\nsecond line", schemas.AuditSuccess))
	require.NoError(t, l.Log(ActionFileRolledBack, "/app/tests/a.spec.ts", "verification failed", schemas.AuditWarning))

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2026-05-04T03:02:01Z [SUCCESS] FILE_MODIFIED | /app/tests/a.spec.ts | applied fix second line", lines[0])
	assert.Contains(t, lines[1], "[WARNING] FILE_ROLLED_BACK")
}

func TestLogIsAppendOnly(t *testing.T) {
	l := newTestLogger(t)
	require.NoError(t, l.Log(ActionSessionStarted, "", "first", schemas.AuditSuccess))

	// A second logger on the same file keeps earlier entries.
	other := NewLogger(l.Path(), zaptest.NewLogger(t))
	require.NoError(t, other.Log(ActionSessionFinished, "", "second", schemas.AuditSuccess))

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Detail)
	assert.Equal(t, "second", entries[1].Detail)
}

func TestReadRoundTrip(t *testing.T) {
	l := newTestLogger(t)
	require.NoError(t, l.Log(ActionHealFailed, "/x | y.ts", "rolled back | verification failed", schemas.AuditFailure))

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, ActionHealFailed, e.Action)
	assert.Equal(t, schemas.AuditFailure, e.Status)
	assert.Equal(t, "/x / y.ts", e.FilePath)
	assert.Equal(t, "rolled back / verification failed", e.Detail)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Minute)
}

func TestReadSkipsMalformedLines(t *testing.T) {
	l := newTestLogger(t)
	require.NoError(t, l.Log(ActionDryRun, "a", "b", schemas.AuditSuccess))
	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := l.Read()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadMissingAndClear(t *testing.T) {
	l := newTestLogger(t)
	entries, err := l.Read()
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, l.Clear(), "clearing a missing log is a no-op")

	require.NoError(t, l.Log(ActionDryRun, "a", "b", schemas.AuditSuccess))
	require.NoError(t, l.Clear())
	entries, err = l.Read()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcurrentAppends(t *testing.T) {
	l := newTestLogger(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Log(ActionBackupCreated, "f", "d", schemas.AuditSuccess))
		}()
	}
	wg.Wait()

	entries, err := l.Read()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestParseEntryRejectsGarbage(t *testing.T) {
	_, err := ParseEntry("not an entry")
	assert.Error(t, err)
	_, err = ParseEntry("yesterday [SUCCESS] X | a | b")
	assert.Error(t, err)
}

func TestFollow(t *testing.T) {
	l := newTestLogger(t)
	require.NoError(t, l.Log(ActionSessionStarted, "", "before follow", schemas.AuditSuccess))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	received := make(chan schemas.AuditLogEntry, 16)
	done := make(chan error, 1)
	go func() {
		done <- l.Follow(ctx, func(e schemas.AuditLogEntry) { received <- e })
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var got schemas.AuditLogEntry
loop:
	for {
		select {
		case got = <-received:
			break loop
		case <-ticker.C:
			require.NoError(t, l.Log(ActionFileModified, "f.spec.ts", "while following", schemas.AuditSuccess))
		case <-ctx.Done():
			t.Fatal("no entry streamed")
		}
	}
	assert.Equal(t, "while following", got.Detail)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop")
	}
}
