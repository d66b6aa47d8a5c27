package domain

import (
	"testing"
	"time"

	"github.com/qubic/go-producer-census/entities"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	cursor := CursorConfig{Kind: entities.CursorHeight, StartHeight: 100, EndHeight: 1}
	require.NoError(t, DefaultConfig("polygon", cursor).Validate())

	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{name: "missing ledger", modify: func(cfg *Config) { cfg.Ledger = "" }},
		{name: "zero concurrency", modify: func(cfg *Config) { cfg.Concurrency = 0 }},
		{name: "zero batch", modify: func(cfg *Config) { cfg.BatchUnits = 0 }},
		{name: "zero timeout", modify: func(cfg *Config) { cfg.RequestTimeout = 0 }},
		{name: "backoff max below base", modify: func(cfg *Config) { cfg.BackoffMax = cfg.BackoffBase - time.Millisecond }},
		{name: "threshold above 100", modify: func(cfg *Config) { cfg.Threshold = 101 }},
		{name: "no buckets", modify: func(cfg *Config) { cfg.Buckets = nil }},
		{name: "overlapping buckets", modify: func(cfg *Config) {
			cfg.Buckets = []entities.BucketRange{{Label: "1-10", Min: 1, Max: 10}, {Label: "5-20", Min: 5, Max: 20}}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig("polygon", cursor)
			tc.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), entities.ErrConfiguration)
		})
	}
}
