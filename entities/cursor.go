package entities

import "time"

type CursorKind string

const (
	CursorHeight    CursorKind = "height"
	CursorHashChain CursorKind = "hash-chain"
	CursorSlotBatch CursorKind = "slot-batch"
	CursorDate      CursorKind = "date-bounded"
)

// CursorState is the serializable position of any cursor variant.
type CursorState struct {
	Kind CursorKind `json:"kind"`

	// height
	Current uint64 `json:"current,omitempty"`
	Lower   uint64 `json:"lower,omitempty"`

	// hash chain
	Hash      string    `json:"hash,omitempty"`
	NotBefore time.Time `json:"notBefore,omitempty"`

	// slot batch
	NextSlot  uint64 `json:"nextSlot,omitempty"`
	Upper     uint64 `json:"upper,omitempty"`
	BatchSize uint64 `json:"batchSize,omitempty"`

	// date bounded
	Offset uint64    `json:"offset,omitempty"`
	Limit  uint64    `json:"limit,omitempty"`
	From   time.Time `json:"from,omitempty"`
	Till   time.Time `json:"till,omitempty"`

	Exhausted bool `json:"exhausted,omitempty"`
}

// Equal compares two states field by field. Times are compared by instant.
func (s CursorState) Equal(o CursorState) bool {
	return s.Kind == o.Kind &&
		s.Current == o.Current && s.Lower == o.Lower &&
		s.Hash == o.Hash && s.NotBefore.Equal(o.NotBefore) &&
		s.NextSlot == o.NextSlot && s.Upper == o.Upper && s.BatchSize == o.BatchSize &&
		s.Offset == o.Offset && s.Limit == o.Limit && s.From.Equal(o.From) && s.Till.Equal(o.Till) &&
		s.Exhausted == o.Exhausted
}
