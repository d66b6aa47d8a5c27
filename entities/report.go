package entities

import (
	"math"
	"time"
)

const Unbounded uint64 = math.MaxUint64

type BucketRange struct {
	Label string `json:"label"`
	Min   uint64 `json:"min"`
	Max   uint64 `json:"max"`
}

type DistributionBucket struct {
	Label      string  `json:"label"`
	Min        uint64  `json:"min"`
	Max        uint64  `json:"max"`
	Validators int     `json:"validators"`
	Blocks     uint64  `json:"blocks"`
	BlockShare float64 `json:"blockShare"`
}

type ProducerCount struct {
	Producer string `json:"producer"`
	Blocks   uint64 `json:"blocks"`
}

type Report struct {
	ScanID          string               `json:"scanId"`
	Ledger          string               `json:"ledger"`
	TotalBlocks     uint64               `json:"totalBlocks"`
	UniqueProducers int                  `json:"uniqueProducers"`
	ProcessedUnits  uint64               `json:"processedUnits"`
	FailedUnits     uint64               `json:"failedUnits"`
	Distribution    []DistributionBucket `json:"distribution"`
	Threshold       float64              `json:"superminorityThreshold"`
	Superminority   *int                 `json:"superminority"`
	// UniqueProducerShare is the number of unique producers relative to processed blocks.
	UniqueProducerShare float64 `json:"uniqueProducerShare"`
	// ActiveValidators is only set for ledgers that expose their validator set.
	ActiveValidators int     `json:"activeValidators,omitempty"`
	Participation    float64 `json:"participation,omitempty"`

	Failures         []UnitFailure `json:"failures,omitempty"`
	Cursor           CursorState   `json:"cursor"`
	Complete         bool          `json:"complete"`
	PersistenceError string        `json:"persistenceError,omitempty"`
	StartedAt        time.Time     `json:"startedAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
