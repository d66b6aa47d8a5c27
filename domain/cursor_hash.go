package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// HashChainCursor follows parent links from a starting block. The next unit is only known after
// the current one was fetched, so there is never more than one pending unit.
type HashChainCursor struct {
	hash      string
	notBefore time.Time
	exhausted bool
}

// NewHashChainCursor starts at hash and stops at the first block older than notBefore. A zero
// notBefore walks back until a block without parent.
func NewHashChainCursor(hash string, notBefore time.Time) (*HashChainCursor, error) {
	if hash == "" {
		return nil, errors.Wrap(entities.ErrConfiguration, "missing start hash")
	}
	return &HashChainCursor{hash: hash, notBefore: notBefore}, nil
}

func (c *HashChainCursor) Peek(n int) []entities.WorkUnit {
	if c.exhausted || n <= 0 {
		return nil
	}
	return []entities.WorkUnit{{Kind: entities.UnitHash, Hash: c.hash}}
}

func (c *HashChainCursor) Advance(outcomes []entities.FetchOutcome) (Progress, error) {
	if err := checkPending(c, outcomes); err != nil {
		return Progress{}, err
	}
	if len(outcomes) == 0 {
		return Progress{}, nil
	}

	outcome := outcomes[0]
	if !outcome.Succeeded() {
		return c.skip(outcome), nil
	}
	if len(outcome.Blocks) == 0 {
		return Progress{Failed: []entities.FetchOutcome{failed(outcome, entities.Malformed(errors.Errorf("no block for hash [%s]", c.hash)))}}, nil
	}

	last := outcome.Blocks[len(outcome.Blocks)-1]
	if !c.notBefore.IsZero() {
		if last.Timestamp.IsZero() {
			return c.skip(failed(outcome, entities.Malformed(errors.Errorf("block [%s] has no timestamp", c.hash)))), nil
		}
		if last.Timestamp.Before(c.notBefore) {
			c.exhausted = true
			return Progress{Consumed: 1, Moved: true, Done: true}, nil
		}
	}
	if last.Parent == c.hash {
		return Progress{Failed: []entities.FetchOutcome{failed(outcome, entities.Malformed(errors.Errorf("block [%s] links to itself", c.hash)))}}, nil
	}

	progress := Progress{Accepted: outcome.Blocks, Consumed: 1, Moved: true}
	if last.Parent == "" {
		c.exhausted = true
	} else {
		c.hash = last.Parent
	}
	progress.Done = c.exhausted
	return progress, nil
}

// skip reports a failed unit. The cursor stays on the hash unless the adapter still decoded the
// parent link, in which case the block is not recorded and the walk goes on past it.
func (c *HashChainCursor) skip(outcome entities.FetchOutcome) Progress {
	if len(outcome.Blocks) == 0 {
		return Progress{Failed: []entities.FetchOutcome{outcome}}
	}
	last := outcome.Blocks[len(outcome.Blocks)-1]
	if last.Parent == c.hash {
		return Progress{Failed: []entities.FetchOutcome{outcome}}
	}
	if !c.notBefore.IsZero() && !last.Timestamp.IsZero() && last.Timestamp.Before(c.notBefore) {
		c.exhausted = true
		return Progress{Consumed: 1, Moved: true, Done: true}
	}

	if last.Parent == "" {
		c.exhausted = true
	} else {
		c.hash = last.Parent
	}
	return Progress{Failed: []entities.FetchOutcome{outcome}, Consumed: 1, Moved: true, Done: c.exhausted}
}

func (c *HashChainCursor) Done() bool {
	return c.exhausted
}

func (c *HashChainCursor) State() entities.CursorState {
	return entities.CursorState{Kind: entities.CursorHashChain, Hash: c.hash, NotBefore: c.notBefore, Exhausted: c.exhausted}
}
