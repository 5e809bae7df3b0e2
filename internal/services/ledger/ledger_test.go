package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func tempLedgerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sent_log.json")
}

func TestLedgerStartsEmptyWhenFileMissing(t *testing.T) {
	l := New(tempLedgerPath(t), arbor.NewLogger())
	assert.Equal(t, 0, l.Size())
	assert.False(t, l.Contains("20260828000001"))
}

func TestLedgerMarkSentPersistsImmediately(t *testing.T) {
	path := tempLedgerPath(t)
	l := New(path, arbor.NewLogger())

	require.NoError(t, l.MarkSent("20260828000001"))
	assert.True(t, l.Contains("20260828000001"))

	// A fresh instance sees the id without an explicit save step.
	reopened := New(path, arbor.NewLogger())
	assert.True(t, reopened.Contains("20260828000001"))
	assert.False(t, reopened.Contains("20260828000002"))
}

func TestLedgerFileShape(t *testing.T) {
	path := tempLedgerPath(t)
	l := New(path, arbor.NewLogger())
	require.NoError(t, l.MarkSent("20260828000002"))
	require.NoError(t, l.MarkSent("20260828000001"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var lf struct {
		Updated    string   `json:"updated"`
		SentAcptno []string `json:"sent_acptno"`
	}
	require.NoError(t, json.Unmarshal(data, &lf))
	assert.NotEmpty(t, lf.Updated)
	// Ids are stored sorted for stable diffs.
	assert.Equal(t, []string{"20260828000001", "20260828000002"}, lf.SentAcptno)
}

func TestLedgerPurgeOldKeepsCurrentDate(t *testing.T) {
	path := tempLedgerPath(t)
	l := New(path, arbor.NewLogger())
	require.NoError(t, l.MarkSent("20260827000001"))
	require.NoError(t, l.MarkSent("20260828000001"))
	require.NoError(t, l.MarkSent("20260828000002"))

	require.NoError(t, l.PurgeOld("20260828"))

	assert.Equal(t, 2, l.Size())
	assert.False(t, l.Contains("20260827000001"))
	assert.True(t, l.Contains("20260828000001"))

	// The purge is persisted, not just in-memory.
	reopened := New(path, arbor.NewLogger())
	assert.Equal(t, 2, reopened.Size())
}

func TestLedgerCorruptFileStartsEmpty(t *testing.T) {
	path := tempLedgerPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	l := New(path, arbor.NewLogger())
	assert.Equal(t, 0, l.Size())

	// Writing through the corrupt file repairs it.
	require.NoError(t, l.MarkSent("20260828000001"))
	reopened := New(path, arbor.NewLogger())
	assert.True(t, reopened.Contains("20260828000001"))
}

func TestLedgerReloadPicksUpExternalWrites(t *testing.T) {
	path := tempLedgerPath(t)
	l := New(path, arbor.NewLogger())

	other := New(path, arbor.NewLogger())
	require.NoError(t, other.MarkSent("20260828000009"))

	assert.False(t, l.Contains("20260828000009"))
	l.Reload()
	assert.True(t, l.Contains("20260828000009"))
}
