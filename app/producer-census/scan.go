package main

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/domain"
	"github.com/qubic/go-producer-census/entities"
	"github.com/qubic/go-producer-census/external/archiver"
	"github.com/qubic/go-producer-census/external/provider"
)

const headTimeout = 30 * time.Second

func newFetcher(ctx context.Context, cfg config) (provider.Fetcher, provider.Ledger, error) {
	ledger, err := provider.LookupLedger(cfg.Scan.Ledger)
	if err != nil {
		return nil, provider.Ledger{}, err
	}

	if ledger.Name == provider.Qubic {
		client, err := archiver.NewClient(cfg.Archiver.GrpcHost)
		if err != nil {
			return nil, provider.Ledger{}, err
		}
		return client, ledger, nil
	}

	fetcher, err := provider.New(ctx, ledger.Name, provider.Options{
		BaseURL:     cfg.Provider.BaseURL,
		APIKeys:     cfg.Provider.APIKeys,
		BearerToken: cfg.Provider.BearerToken,
		Timeout:     cfg.Fetch.RequestTimeout,
	})
	if err != nil {
		return nil, provider.Ledger{}, err
	}
	return fetcher, ledger, nil
}

func buildScanConfig(ctx context.Context, cfg config, ledger provider.Ledger, fetcher provider.Fetcher) (domain.Config, error) {
	cursor, err := cursorConfig(cfg, ledger)
	if err != nil {
		return domain.Config{}, err
	}
	err = resolveHead(ctx, &cursor, fetcher)
	if err != nil {
		return domain.Config{}, err
	}

	scanConfig := domain.DefaultConfig(ledger.Name, cursor)
	scanConfig.BatchUnits = cfg.Fetch.BatchUnits
	scanConfig.Concurrency = cfg.Fetch.Concurrency
	scanConfig.RequestInterval = cfg.Fetch.RequestInterval
	scanConfig.RequestTimeout = cfg.Fetch.RequestTimeout
	scanConfig.MaxAttempts = cfg.Fetch.MaxAttempts
	scanConfig.BackoffBase = cfg.Fetch.BackoffBase
	scanConfig.BackoffMax = cfg.Fetch.BackoffMax
	scanConfig.MaxIterations = cfg.Fetch.MaxIterations
	scanConfig.MaxStalls = cfg.Fetch.MaxStalls
	scanConfig.CheckpointInterval = cfg.Checkpoint.Interval
	scanConfig.Resume = cfg.Scan.Resume
	scanConfig.Threshold = cfg.Report.Threshold
	scanConfig.PublishTimeout = cfg.Report.PublishTimeout

	specs := ledger.Buckets
	if cfg.Report.Buckets != "" {
		specs = strings.Split(cfg.Report.Buckets, ";")
	}
	scanConfig.Buckets, err = domain.ParseBucketRanges(specs...)
	if err != nil {
		return domain.Config{}, err
	}

	return scanConfig, scanConfig.Validate()
}

func cursorConfig(cfg config, ledger provider.Ledger) (domain.CursorConfig, error) {
	cursor := domain.CursorConfig{
		Kind:        ledger.Cursor,
		StartHeight: cfg.Scan.StartHeight,
		EndHeight:   cfg.Scan.EndHeight,
		StartHash:   cfg.Scan.StartHash,
		BatchSize:   cfg.Scan.SlotBatch,
		PageSize:    cfg.Scan.PageSize,
	}
	// the beacon api resolves the "head" block id
	if cursor.StartHash == "" && ledger.Name == provider.Ethereum {
		cursor.StartHash = "head"
	}

	var err error
	cursor.NotBefore, err = parseTime(cfg.Scan.NotBefore)
	if err != nil {
		return cursor, errors.Wrap(err, "not before")
	}
	cursor.From, err = parseTime(cfg.Scan.From)
	if err != nil {
		return cursor, errors.Wrap(err, "from")
	}
	cursor.Till, err = parseTime(cfg.Scan.Till)
	if err != nil {
		return cursor, errors.Wrap(err, "till")
	}
	return cursor, nil
}

// resolveHead fills the open end of a height or slot range from the chain head.
func resolveHead(ctx context.Context, cursor *domain.CursorConfig, fetcher provider.Fetcher) error {
	var target *uint64
	switch cursor.Kind {
	case entities.CursorHeight:
		target = &cursor.StartHeight
	case entities.CursorSlotBatch:
		target = &cursor.EndHeight
	default:
		return nil
	}
	if *target != 0 {
		return nil
	}

	resolver, ok := fetcher.(provider.HeadResolver)
	if !ok {
		return errors.Wrapf(entities.ErrConfiguration, "%s cursor needs an explicit bound", cursor.Kind)
	}
	headCtx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()

	head, err := resolver.Head(headCtx)
	if err != nil {
		return errors.Wrap(err, "resolving chain head")
	}
	*target = head
	cursor.HeadResolved = true
	return nil
}

// parseTime accepts RFC3339 timestamps and plain dates (UTC midnight).
func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(entities.ErrConfiguration, "invalid time [%s]", value)
	}
	return t, nil
}
