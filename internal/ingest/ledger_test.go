package ingest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestLedgerPutIsIdempotent(t *testing.T) {
	ledger := openTestLedger(t)
	entry := Entry{
		BatchID:    "01JEX0000000000000000000AA",
		Category:   "received_chargeback",
		File:       "rcb.csv",
		SHA256:     "abc",
		Records:    3,
		ImportedAt: time.Date(2024, 12, 9, 8, 0, 0, 0, time.UTC),
	}

	stored, created, err := ledger.Put(entry)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entry, *stored)

	again := entry
	again.BatchID = "other"
	stored, created, err = ledger.Put(again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, entry.BatchID, stored.BatchID)

	found, ok, err := ledger.Lookup("abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry, *found)

	_, ok, err = ledger.Lookup("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := ledger.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ledger, err := OpenLedger(path)
	require.NoError(t, err)
	_, _, err = ledger.Put(Entry{SHA256: "abc", Records: 1})
	require.NoError(t, err)
	require.NoError(t, ledger.Close())

	ledger, err = OpenLedger(path)
	require.NoError(t, err)
	defer ledger.Close()
	_, ok, err := ledger.Lookup("abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClosedLedger(t *testing.T) {
	var ledger *Ledger
	_, _, err := ledger.Lookup("abc")
	assert.ErrorIs(t, err, ErrLedgerClosed)
	assert.NoError(t, ledger.Close())
}
