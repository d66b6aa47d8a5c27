package pebbledb

import (
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/qubic/go-producer-census/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	dbDir, err := os.MkdirTemp("", "pebble_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dbDir) })

	store, err := NewCheckpointStore(dbDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testCheckpoint(ledger string, processed uint64) entities.Checkpoint {
	return entities.Checkpoint{
		ScanID: "5b0e5a52-3f0c-4c55-9e0f-0c4d2c1b1f00",
		Ledger: ledger,
		Origin: entities.CursorState{Kind: entities.CursorHeight, Current: 1000, Lower: 1},
		Cursor: entities.CursorState{Kind: entities.CursorHeight, Current: 1000 - processed, Lower: 1},
		Tally: map[string]uint64{
			"NodeID-A": 60,
			"NodeID-B": 30,
			"NodeID-C": 10,
		},
		TotalBlocks:    100,
		ProcessedUnits: processed,
		FailedUnits:    2,
		Timestamp:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPebbleStore_SaveAndLoadCheckpoint(t *testing.T) {
	store := newTestStore(t)

	testData := []struct {
		name      string
		processed uint64
	}{
		{name: "first", processed: 100},
		{name: "overwrite", processed: 200},
		{name: "overwrite again", processed: 300},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			expected := testCheckpoint("avalanche", testRun.processed)
			err := store.SaveCheckpoint(expected)
			require.NoError(t, err)

			got, err := store.LoadCheckpoint("avalanche")
			require.NoError(t, err)
			require.Equal(t, expected, got)
		})
	}
}

func TestPebbleStore_LoadCheckpointNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadCheckpoint("solana")
	require.ErrorIs(t, err, entities.ErrStoreEntityNotFound)
}

func TestPebbleStore_LoadCorruptCheckpoint(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveCheckpoint(testCheckpoint("polygon", 100))
	require.NoError(t, err)

	value, closer, err := store.db.Get(checkpointKey("polygon"))
	require.NoError(t, err)
	tampered := append([]byte(nil), value...)
	require.NoError(t, closer.Close())
	tampered[len(tampered)-2] ^= 0xff
	require.NoError(t, store.db.Set(checkpointKey("polygon"), tampered, pebble.Sync))

	_, err = store.LoadCheckpoint("polygon")
	require.ErrorIs(t, err, entities.ErrCorruptCheckpoint)

	require.NoError(t, store.db.Set(checkpointKey("polygon"), []byte("short"), pebble.Sync))
	_, err = store.LoadCheckpoint("polygon")
	require.ErrorIs(t, err, entities.ErrCorruptCheckpoint)
}

func TestPebbleStore_ListAndDeleteCheckpoints(t *testing.T) {
	store := newTestStore(t)

	checkpoints, err := store.ListCheckpoints()
	require.NoError(t, err)
	assert.Empty(t, checkpoints)

	for _, ledger := range []string{"solana", "avalanche", "polygon"} {
		require.NoError(t, store.SaveCheckpoint(testCheckpoint(ledger, 10)))
	}

	checkpoints, err = store.ListCheckpoints()
	require.NoError(t, err)
	require.Len(t, checkpoints, 3)
	assert.Equal(t, "avalanche", checkpoints[0].Ledger)
	assert.Equal(t, "polygon", checkpoints[1].Ledger)
	assert.Equal(t, "solana", checkpoints[2].Ledger)

	err = store.DeleteCheckpoint("polygon")
	require.NoError(t, err)
	_, err = store.LoadCheckpoint("polygon")
	require.ErrorIs(t, err, entities.ErrStoreEntityNotFound)

	err = store.DeleteCheckpoint("polygon")
	require.ErrorIs(t, err, entities.ErrStoreEntityNotFound)

	checkpoints, err = store.ListCheckpoints()
	require.NoError(t, err)
	assert.Len(t, checkpoints, 2)
}

func TestPebbleStore_SaveCheckpointWithoutLedger(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveCheckpoint(entities.Checkpoint{ScanID: "x"})
	require.Error(t, err)
}
