package entities

import (
	"fmt"
	"time"
)

type UnitKind string

const (
	UnitHeight UnitKind = "height"
	UnitHash   UnitKind = "hash"
	UnitSlots  UnitKind = "slots"
	UnitPage   UnitKind = "page"
)

// WorkUnit describes one provider request. It is never modified after a cursor issued it.
type WorkUnit struct {
	Kind   UnitKind  `json:"kind"`
	Height uint64    `json:"height,omitempty"` // block height or first slot of a slot range
	Hash   string    `json:"hash,omitempty"`
	Count  uint64    `json:"count,omitempty"` // slots in a range, page size for pages
	Offset uint64    `json:"offset,omitempty"`
	From   time.Time `json:"from,omitempty"`
	Till   time.Time `json:"till,omitempty"`
}

func (u WorkUnit) String() string {
	switch u.Kind {
	case UnitHeight:
		return fmt.Sprintf("height %d", u.Height)
	case UnitHash:
		return fmt.Sprintf("hash %s", u.Hash)
	case UnitSlots:
		return fmt.Sprintf("slots %d-%d", u.Height, u.Height+u.Count-1)
	case UnitPage:
		return fmt.Sprintf("page offset %d limit %d", u.Offset, u.Count)
	default:
		return fmt.Sprintf("unit %s", u.Kind)
	}
}

// Block is what an adapter extracts from a provider response.
type Block struct {
	Producer  string
	Blocks    uint64    // 1 for a single block, aggregated count for pre-aggregated rows
	Timestamp time.Time // zero if the provider does not report one
	Parent    string    // link to the previous block for hash-chained traversal
}

type FetchOutcome struct {
	Unit      WorkUnit
	Blocks    []Block
	Err       error
	Retriable bool
	Attempts  int
}

func (o FetchOutcome) Succeeded() bool {
	return o.Err == nil
}

type UnitFailure struct {
	Unit     string    `json:"unit"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}
