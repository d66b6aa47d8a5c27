package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// DateBoundedCursor pages through a provider query restricted to a date window. Pages are
// reduced in order; traversal ends with the first row outside the window or the first page
// that is not full.
type DateBoundedCursor struct {
	offset    uint64
	limit     uint64
	from      time.Time
	till      time.Time
	exhausted bool
}

func NewDateBoundedCursor(limit uint64, from, till time.Time) (*DateBoundedCursor, error) {
	if limit == 0 {
		return nil, errors.Wrap(entities.ErrConfiguration, "page size must be positive")
	}
	if from.IsZero() || till.IsZero() || !from.Before(till) {
		return nil, errors.Wrapf(entities.ErrConfiguration, "invalid date window [%s, %s]", from.Format(time.RFC3339), till.Format(time.RFC3339))
	}
	return &DateBoundedCursor{limit: limit, from: from, till: till}, nil
}

func (c *DateBoundedCursor) Peek(n int) []entities.WorkUnit {
	if c.exhausted || n <= 0 {
		return nil
	}
	units := make([]entities.WorkUnit, 0, n)
	for i := 0; i < n; i++ {
		units = append(units, entities.WorkUnit{
			Kind:   entities.UnitPage,
			Offset: c.offset + uint64(i)*c.limit,
			Count:  c.limit,
			From:   c.from,
			Till:   c.till,
		})
	}
	return units
}

func (c *DateBoundedCursor) Advance(outcomes []entities.FetchOutcome) (Progress, error) {
	if err := checkPending(c, outcomes); err != nil {
		return Progress{}, err
	}
	var progress Progress
	for _, outcome := range outcomes {
		if c.exhausted {
			break // pages after the end of the window
		}
		progress.Consumed++
		c.offset += c.limit

		if !outcome.Succeeded() {
			progress.Failed = append(progress.Failed, outcome)
			continue
		}
		for _, block := range outcome.Blocks {
			if !block.Timestamp.IsZero() && !c.inWindow(block.Timestamp) {
				c.exhausted = true
				continue
			}
			progress.Accepted = append(progress.Accepted, block)
		}
		if uint64(len(outcome.Blocks)) < c.limit {
			c.exhausted = true
		}
	}
	progress.Moved = progress.Consumed > 0
	progress.Done = c.exhausted
	return progress, nil
}

func (c *DateBoundedCursor) inWindow(t time.Time) bool {
	return !t.Before(c.from) && !t.After(c.till)
}

func (c *DateBoundedCursor) Done() bool {
	return c.exhausted
}

func (c *DateBoundedCursor) State() entities.CursorState {
	return entities.CursorState{Kind: entities.CursorDate, Offset: c.offset, Limit: c.limit, From: c.from, Till: c.till, Exhausted: c.exhausted}
}
