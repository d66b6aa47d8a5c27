package domain

import (
	"context"
	"errors"
	"sync"

	"github.com/qubic/go-producer-census/entities"
)

var metrics = NewMetrics("test")
var ErrMock = errors.New("mock error")

// FakeHeightFetcher attributes height h to the producer returned by producerOf.
type FakeHeightFetcher struct {
	producerOf func(height uint64) string
	// number of transient failures before a height succeeds, or a permanent error
	transient map[uint64]int
	permanent map[uint64]error
	calls     map[uint64]int
	onFetch   func(unit entities.WorkUnit)
	locker    sync.Mutex
}

func (f *FakeHeightFetcher) Fetch(_ context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	f.locker.Lock()
	if f.calls == nil {
		f.calls = make(map[uint64]int)
	}
	f.calls[unit.Height]++
	call := f.calls[unit.Height]
	onFetch := f.onFetch
	f.locker.Unlock()

	if onFetch != nil {
		onFetch(unit)
	}
	if err, ok := f.permanent[unit.Height]; ok {
		return nil, err
	}
	if call <= f.transient[unit.Height] {
		return nil, entities.Transient(ErrMock)
	}
	return []entities.Block{{Producer: f.producerOf(unit.Height), Blocks: 1}}, nil
}

func (f *FakeHeightFetcher) Calls(height uint64) int {
	f.locker.Lock()
	defer f.locker.Unlock()
	return f.calls[height]
}

// FakeStore is an in memory checkpoint store.
type FakeStore struct {
	checkpoints map[string]entities.Checkpoint
	saved       []entities.Checkpoint
	loadErr     error
	shouldError bool
}

func (fs *FakeStore) SaveCheckpoint(checkpoint entities.Checkpoint) error {
	if fs.shouldError {
		return ErrMock
	}
	if fs.checkpoints == nil {
		fs.checkpoints = make(map[string]entities.Checkpoint)
	}
	fs.checkpoints[checkpoint.Ledger] = checkpoint
	fs.saved = append(fs.saved, checkpoint)
	return nil
}

func (fs *FakeStore) LoadCheckpoint(ledger string) (entities.Checkpoint, error) {
	if fs.loadErr != nil {
		return entities.Checkpoint{}, fs.loadErr
	}
	checkpoint, ok := fs.checkpoints[ledger]
	if !ok {
		return entities.Checkpoint{}, entities.ErrStoreEntityNotFound
	}
	return checkpoint, nil
}

type MockPublisher struct {
	reports     []*entities.Report
	tallies     []map[string]uint64
	shouldError bool
}

func (mp *MockPublisher) PublishReport(_ context.Context, report *entities.Report, tally map[string]uint64) error {
	if mp.shouldError {
		return ErrMock
	}
	mp.reports = append(mp.reports, report)
	mp.tallies = append(mp.tallies, tally)
	return nil
}

type MockArtifactWriter struct {
	writes []map[string]uint64
}

func (mw *MockArtifactWriter) WriteArtifacts(_ string, tally map[string]uint64) error {
	mw.writes = append(mw.writes, tally)
	return nil
}
