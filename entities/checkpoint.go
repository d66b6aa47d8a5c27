package entities

import "time"

type Checkpoint struct {
	ScanID         string            `json:"scanId"`
	Ledger         string            `json:"ledger"`
	Origin         CursorState       `json:"origin"`
	Cursor         CursorState       `json:"cursor"`
	Tally          map[string]uint64 `json:"tally"`
	TotalBlocks    uint64            `json:"totalBlocks"`
	ProcessedUnits uint64            `json:"processedUnits"`
	FailedUnits    uint64            `json:"failedUnits"`
	Validators     []string          `json:"validators,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Final          bool              `json:"final"`
}
