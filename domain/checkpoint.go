package domain

import (
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
	"go.uber.org/zap"
)

type CheckpointStore interface {
	SaveCheckpoint(checkpoint entities.Checkpoint) error
	LoadCheckpoint(ledger string) (entities.Checkpoint, error)
}

// CheckpointManager persists scan snapshots every interval processed units. A crash between two
// checkpoints repeats at most one interval on resume.
type CheckpointManager struct {
	store    CheckpointStore
	ledger   string
	interval uint64
	last     uint64
	metrics  *Metrics
	logger   *zap.SugaredLogger
}

func NewCheckpointManager(store CheckpointStore, ledger string, interval uint64, metrics *Metrics, logger *zap.SugaredLogger) *CheckpointManager {
	return &CheckpointManager{
		store:    store,
		ledger:   ledger,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Seed sets the processed count of a resumed checkpoint so the cadence continues from there.
func (m *CheckpointManager) Seed(processed uint64) {
	m.last = processed
}

// MaybeCheckpoint persists a snapshot if processed crossed an interval boundary since the last
// checkpoint. A failed write is logged and the scan goes on in memory.
func (m *CheckpointManager) MaybeCheckpoint(processed uint64, snapshot func() entities.Checkpoint) bool {
	if m.interval == 0 || processed/m.interval <= m.last/m.interval {
		return false
	}
	m.last = processed
	return m.save(processed, snapshot())
}

// Flush persists a snapshot regardless of the cadence, used when a scan stops early.
func (m *CheckpointManager) Flush(processed uint64, snapshot func() entities.Checkpoint) bool {
	m.last = processed
	return m.save(processed, snapshot())
}

func (m *CheckpointManager) save(processed uint64, checkpoint entities.Checkpoint) bool {
	err := m.store.SaveCheckpoint(checkpoint)
	if err != nil {
		m.metrics.IncCheckpointFailures()
		m.logger.Errorw("Persisting checkpoint failed, continuing in memory", "ledger", m.ledger, "processed", processed, "error", err)
		return false
	}
	m.metrics.IncCheckpoints()
	m.logger.Infow("Persisted checkpoint", "ledger", m.ledger, "processed", processed, "blocks", checkpoint.TotalBlocks, "producers", len(checkpoint.Tally))
	return true
}

// LoadLatest returns the last persisted checkpoint. The second result is false if there is none.
func (m *CheckpointManager) LoadLatest() (entities.Checkpoint, bool, error) {
	checkpoint, err := m.store.LoadCheckpoint(m.ledger)
	if errors.Is(err, entities.ErrStoreEntityNotFound) {
		return entities.Checkpoint{}, false, nil
	}
	if err != nil {
		return entities.Checkpoint{}, false, errors.Wrapf(err, "loading checkpoint for [%s]", m.ledger)
	}
	return checkpoint, true, nil
}

// Finalize writes the terminal snapshot.
func (m *CheckpointManager) Finalize(checkpoint entities.Checkpoint) error {
	checkpoint.Final = true
	err := m.store.SaveCheckpoint(checkpoint)
	if err != nil {
		m.metrics.IncCheckpointFailures()
		return errors.Wrapf(entities.ErrPersistence, "writing final checkpoint for [%s]: %v", m.ledger, err)
	}
	m.metrics.IncCheckpoints()
	return nil
}
