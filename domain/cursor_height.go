package domain

import (
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// HeightCursor walks heights downwards from an upper to a lower bound, both inclusive. Progress
// does not depend on fetched content, so failed heights are skipped and reported.
type HeightCursor struct {
	current   uint64
	lower     uint64
	exhausted bool
}

func NewHeightCursor(upper, lower uint64) (*HeightCursor, error) {
	if upper < lower {
		return nil, errors.Wrapf(entities.ErrConfiguration, "start height [%d] is below end height [%d]", upper, lower)
	}
	return &HeightCursor{current: upper, lower: lower}, nil
}

func (c *HeightCursor) Peek(n int) []entities.WorkUnit {
	if c.exhausted || n <= 0 {
		return nil
	}
	count := uint64(n)
	if remaining := c.current - c.lower; remaining < count {
		count = remaining + 1
	}
	units := make([]entities.WorkUnit, 0, count)
	for i := uint64(0); i < count; i++ {
		units = append(units, entities.WorkUnit{Kind: entities.UnitHeight, Height: c.current - i})
	}
	return units
}

func (c *HeightCursor) Advance(outcomes []entities.FetchOutcome) (Progress, error) {
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
		if c.current == c.lower {
			c.exhausted = true
		} else {
			c.current--
		}
		progress.Consumed++
	}
	progress.Moved = progress.Consumed > 0
	progress.Done = c.exhausted
	return progress, nil
}

func (c *HeightCursor) Done() bool {
	return c.exhausted
}

func (c *HeightCursor) State() entities.CursorState {
	return entities.CursorState{Kind: entities.CursorHeight, Current: c.current, Lower: c.lower, Exhausted: c.exhausted}
}
