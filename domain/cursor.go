package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// Cursor is a traversal position over a ledger's block sequence. A cursor has a single writer:
// the runner peeks, hands the units to the scheduler and advances with the outcomes in
// submission order.
type Cursor interface {
	// Peek returns up to n pending units without consuming them.
	Peek(n int) []entities.WorkUnit
	// Advance consumes the outcomes of a prefix of the pending units.
	Advance(outcomes []entities.FetchOutcome) (Progress, error)
	Done() bool
	State() entities.CursorState
}

// Progress is the effect of one Advance call.
type Progress struct {
	Accepted []entities.Block        // blocks to record
	Failed   []entities.FetchOutcome // failed units, reported but not recorded
	Consumed int                     // units retired from the cursor
	Moved    bool                    // false if the cursor position did not change
	Done     bool
}

type CursorConfig struct {
	Kind entities.CursorKind `validate:"required,oneof=height hash-chain slot-batch date-bounded"`
	// StartHeight is the upper height for descending height traversal and the first slot for
	// slot batches. EndHeight is the lower height or the last slot, both inclusive.
	StartHeight uint64
	EndHeight   uint64
	StartHash   string
	NotBefore   time.Time
	From        time.Time
	Till        time.Time
	BatchSize   uint64
	PageSize    uint64

	// HeadResolved marks an upper height or last slot that was taken from the chain head
	HeadResolved bool
}

func NewCursor(cfg CursorConfig) (Cursor, error) {
	switch cfg.Kind {
	case entities.CursorHeight:
		return NewHeightCursor(cfg.StartHeight, cfg.EndHeight)
	case entities.CursorHashChain:
		return NewHashChainCursor(cfg.StartHash, cfg.NotBefore)
	case entities.CursorSlotBatch:
		return NewSlotBatchCursor(cfg.StartHeight, cfg.EndHeight, cfg.BatchSize)
	case entities.CursorDate:
		return NewDateBoundedCursor(cfg.PageSize, cfg.From, cfg.Till)
	default:
		return nil, errors.Wrapf(entities.ErrConfiguration, "unknown cursor kind [%s]", cfg.Kind)
	}
}

// RestoreCursor rebuilds a cursor from a persisted state.
func RestoreCursor(state entities.CursorState) (Cursor, error) {
	switch state.Kind {
	case entities.CursorHeight:
		if state.Current < state.Lower && !state.Exhausted {
			return nil, errors.Errorf("invalid height cursor state: current [%d] below lower [%d]", state.Current, state.Lower)
		}
		return &HeightCursor{current: state.Current, lower: state.Lower, exhausted: state.Exhausted}, nil
	case entities.CursorHashChain:
		if state.Hash == "" && !state.Exhausted {
			return nil, errors.New("invalid hash chain cursor state: missing hash")
		}
		return &HashChainCursor{hash: state.Hash, notBefore: state.NotBefore, exhausted: state.Exhausted}, nil
	case entities.CursorSlotBatch:
		if state.BatchSize == 0 {
			return nil, errors.New("invalid slot batch cursor state: zero batch size")
		}
		return &SlotBatchCursor{next: state.NextSlot, upper: state.Upper, batchSize: state.BatchSize, exhausted: state.Exhausted}, nil
	case entities.CursorDate:
		if state.Limit == 0 {
			return nil, errors.New("invalid date bounded cursor state: zero limit")
		}
		return &DateBoundedCursor{offset: state.Offset, limit: state.Limit, from: state.From, till: state.Till, exhausted: state.Exhausted}, nil
	default:
		return nil, errors.Errorf("unknown cursor kind [%s]", state.Kind)
	}
}

// checkPending verifies that the outcomes belong to the units the cursor would hand out next.
func checkPending(c Cursor, outcomes []entities.FetchOutcome) error {
	pending := c.Peek(len(outcomes))
	if len(pending) != len(outcomes) {
		return errors.Errorf("got [%d] outcomes for [%d] pending units", len(outcomes), len(pending))
	}
	for i := range pending {
		if !sameUnit(pending[i], outcomes[i].Unit) {
			return errors.Errorf("outcome [%d] is for %s, expected %s", i, outcomes[i].Unit.String(), pending[i].String())
		}
	}
	return nil
}

func sameUnit(a, b entities.WorkUnit) bool {
	return a.Kind == b.Kind && a.Height == b.Height && a.Hash == b.Hash && a.Count == b.Count &&
		a.Offset == b.Offset && a.From.Equal(b.From) && a.Till.Equal(b.Till)
}

func failed(outcome entities.FetchOutcome, err error) entities.FetchOutcome {
	outcome.Err = err
	outcome.Retriable = false
	return outcome
}
