package pebbledb

import (
	"bytes"
	"encoding/json"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
	"github.com/qubic/go-qubic/common"
)

const checkpointKeyPrefix byte = 0x01

// checksum length of the K12 digest stored in front of every checkpoint
const checksumSize = 32

type Store struct {
	db *pebble.DB
}

func NewCheckpointStore(storeDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "producer-census-store"), &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening pebble db")
	}

	return &Store{db: db}, nil
}

// SaveCheckpoint stores the checkpoint of a ledger, replacing any previous one.
func (ps *Store) SaveCheckpoint(checkpoint entities.Checkpoint) error {
	if checkpoint.Ledger == "" {
		return errors.New("checkpoint without ledger")
	}
	value, err := encodeCheckpoint(checkpoint)
	if err != nil {
		return errors.Wrapf(err, "encoding checkpoint for [%s]", checkpoint.Ledger)
	}

	err = ps.db.Set(checkpointKey(checkpoint.Ledger), value, pebble.Sync)
	if err != nil {
		return errors.Wrapf(err, "setting checkpoint for [%s]", checkpoint.Ledger)
	}
	return nil
}

func (ps *Store) LoadCheckpoint(ledger string) (entities.Checkpoint, error) {
	value, closer, err := ps.db.Get(checkpointKey(ledger))
	if errors.Is(err, pebble.ErrNotFound) {
		return entities.Checkpoint{}, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return entities.Checkpoint{}, errors.Wrapf(err, "getting checkpoint for [%s]", ledger)
	}
	defer closer.Close()

	checkpoint, err := decodeCheckpoint(value)
	if err != nil {
		return entities.Checkpoint{}, errors.Wrapf(err, "decoding checkpoint for [%s]", ledger)
	}
	return checkpoint, nil
}

// ListCheckpoints returns the checkpoints of all ledgers ordered by ledger name.
func (ps *Store) ListCheckpoints() ([]entities.Checkpoint, error) {
	iter, err := ps.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{checkpointKeyPrefix},
		UpperBound: []byte{checkpointKeyPrefix + 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating iterator")
	}
	defer iter.Close()

	var checkpoints []entities.Checkpoint
	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, errors.Wrap(err, "getting value from iter")
		}
		checkpoint, err := decodeCheckpoint(value)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding checkpoint [%s]", iter.Key()[1:])
		}
		checkpoints = append(checkpoints, checkpoint)
	}
	return checkpoints, nil
}

func (ps *Store) DeleteCheckpoint(ledger string) error {
	key := checkpointKey(ledger)
	_, closer, err := ps.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "getting checkpoint for [%s]", ledger)
	}
	_ = closer.Close()

	err = ps.db.Delete(key, pebble.Sync)
	if err != nil {
		return errors.Wrapf(err, "deleting checkpoint for [%s]", ledger)
	}
	return nil
}

func (ps *Store) Close() error {
	return ps.db.Close()
}

func checkpointKey(ledger string) []byte {
	return append([]byte{checkpointKeyPrefix}, []byte(ledger)...)
}

func encodeCheckpoint(checkpoint entities.Checkpoint) ([]byte, error) {
	payload, err := json.Marshal(checkpoint)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling checkpoint")
	}
	sum, err := common.K12Hash(payload)
	if err != nil {
		return nil, errors.Wrap(err, "generating hash")
	}

	var buff bytes.Buffer
	buff.Grow(checksumSize + len(payload))
	buff.Write(sum[:])
	buff.Write(payload)
	return buff.Bytes(), nil
}

func decodeCheckpoint(value []byte) (entities.Checkpoint, error) {
	if len(value) < checksumSize {
		return entities.Checkpoint{}, errors.Wrapf(entities.ErrCorruptCheckpoint, "value too short (%d bytes)", len(value))
	}
	stored, payload := value[:checksumSize], value[checksumSize:]

	sum, err := common.K12Hash(payload)
	if err != nil {
		return entities.Checkpoint{}, errors.Wrap(err, "generating hash")
	}
	if !bytes.Equal(stored, sum[:]) {
		return entities.Checkpoint{}, entities.ErrCorruptCheckpoint
	}

	var checkpoint entities.Checkpoint
	err = json.Unmarshal(payload, &checkpoint)
	if err != nil {
		return entities.Checkpoint{}, errors.Wrapf(entities.ErrCorruptCheckpoint, "unmarshalling checkpoint: %v", err)
	}
	return checkpoint, nil
}
