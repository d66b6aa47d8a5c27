package domain

import (
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// SlotBatchCursor walks slot ranges upwards. One unit covers up to batchSize slots and the last
// range is trimmed to the upper bound.
type SlotBatchCursor struct {
	next      uint64
	upper     uint64
	batchSize uint64
	exhausted bool
}

func NewSlotBatchCursor(first, last, batchSize uint64) (*SlotBatchCursor, error) {
	if last < first {
		return nil, errors.Wrapf(entities.ErrConfiguration, "last slot [%d] is below first slot [%d]", last, first)
	}
	if batchSize == 0 {
		return nil, errors.Wrap(entities.ErrConfiguration, "slot batch size must be positive")
	}
	return &SlotBatchCursor{next: first, upper: last, batchSize: batchSize}, nil
}

func (c *SlotBatchCursor) Peek(n int) []entities.WorkUnit {
	if c.exhausted || n <= 0 {
		return nil
	}
	var units []entities.WorkUnit
	start := c.next
	for len(units) < n {
		count := min(c.batchSize, c.upper-start+1)
		units = append(units, entities.WorkUnit{Kind: entities.UnitSlots, Height: start, Count: count})
		end := start + count - 1
		if end == c.upper {
			break
		}
		start = end + 1
	}
	return units
}

func (c *SlotBatchCursor) Advance(outcomes []entities.FetchOutcome) (Progress, error) {
	if err := checkPending(c, outcomes); err != nil {
		return Progress{}, err
	}
	var progress Progress
	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			progress.Accepted = append(progress.Accepted, outcome.Blocks...)
		} else {
			progress.Failed = append(progress.Failed, outcome)
		}
		end := outcome.Unit.Height + outcome.Unit.Count - 1
		if end == c.upper {
			c.exhausted = true
		} else {
			c.next = end + 1
		}
		progress.Consumed++
	}
	progress.Moved = progress.Consumed > 0
	progress.Done = c.exhausted
	return progress, nil
}

func (c *SlotBatchCursor) Done() bool {
	return c.exhausted
}

func (c *SlotBatchCursor) State() entities.CursorState {
	return entities.CursorState{Kind: entities.CursorSlotBatch, NextSlot: c.next, Upper: c.upper, BatchSize: c.batchSize, Exhausted: c.exhausted}
}
