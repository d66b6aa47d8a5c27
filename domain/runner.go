package domain

import (
	"context"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
	"go.uber.org/zap"
)

const maxReportedFailures = 100

type Fetcher interface {
	Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error)
}

// ValidatorSetFetcher is implemented by fetchers of ledgers that expose their active validator set.
type ValidatorSetFetcher interface {
	ActiveValidators(ctx context.Context) ([]string, error)
}

type ArtifactWriter interface {
	WriteArtifacts(name string, tally map[string]uint64) error
}

type ReportPublisher interface {
	PublishReport(ctx context.Context, report *entities.Report, tally map[string]uint64) error
}

type Runner struct {
	cfg         Config
	fetcher     Fetcher
	scheduler   *Scheduler
	checkpoints *CheckpointManager
	artifacts   ArtifactWriter
	publishers  []ReportPublisher
	status      atomic.Pointer[entities.Report]
	metrics     *Metrics
	logger      *zap.SugaredLogger
}

func NewRunner(
	cfg Config,
	fetcher Fetcher,
	store CheckpointStore,
	artifacts ArtifactWriter,
	publishers []ReportPublisher,
	metrics *Metrics,
	logger *zap.SugaredLogger,
) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// fail before any fetch if the cursor bounds are inconsistent
	if _, err := NewCursor(cfg.Cursor); err != nil {
		return nil, err
	}
	return &Runner{
		cfg:         cfg,
		fetcher:     fetcher,
		scheduler:   NewScheduler(cfg.schedulerConfig(), metrics, logger),
		checkpoints: NewCheckpointManager(store, cfg.Ledger, cfg.CheckpointInterval, metrics, logger),
		artifacts:   artifacts,
		publishers:  publishers,
		metrics:     metrics,
		logger:      logger,
	}, nil
}

// Status returns the latest live report or nil before the first batch.
func (r *Runner) Status() *entities.Report {
	return r.status.Load()
}

// scan is the mutable state of one Run call. Only the run loop touches it.
type scan struct {
	id         string
	origin     entities.CursorState
	cursor     Cursor
	aggregator *Aggregator
	processed  uint64
	failed     uint64
	failures   []entities.UnitFailure
	startedAt  time.Time
	// unit the cursor is stuck on, its repeated failures count once
	stuckOn string
	// union of the active validator sets sampled during the scan
	validators map[string]struct{}
}

// Run traverses the configured range and returns the report. On cancellation, iteration limit or
// stall it returns the partial report together with the error.
func (r *Runner) Run(ctx context.Context) (*entities.Report, error) {
	s, err := r.start()
	if err != nil {
		return nil, err
	}
	r.logger.Infow("Starting scan", "ledger", r.cfg.Ledger, "scanId", s.id, "cursor", s.cursor.State(), "processed", s.processed)

	err = r.loop(ctx, s)
	if err != nil {
		r.checkpoints.Flush(s.processed, func() entities.Checkpoint { return r.checkpoint(s) })
		report := r.report(s, false)
		r.status.Store(report)
		return report, err
	}

	return r.finish(ctx, s)
}

func (r *Runner) start() (*scan, error) {
	cursor, err := NewCursor(r.cfg.Cursor)
	if err != nil {
		return nil, err
	}
	s := scan{
		id:         uuid.NewString(),
		origin:     cursor.State(),
		cursor:     cursor,
		aggregator: NewAggregator(),
		startedAt:  time.Now().UTC(),
		validators: make(map[string]struct{}),
	}
	if !r.cfg.Resume {
		return &s, nil
	}

	checkpoint, found, err := r.checkpoints.LoadLatest()
	if errors.Is(err, entities.ErrCorruptCheckpoint) {
		r.logger.Warnw("Ignoring corrupt checkpoint", "ledger", r.cfg.Ledger, "error", err)
		return &s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "resuming scan")
	}
	if !found {
		return &s, nil
	}
	if !sameRange(checkpoint.Origin, s.origin, r.cfg.Cursor.HeadResolved) {
		r.logger.Warnw("Ignoring checkpoint of a different scan range", "ledger", r.cfg.Ledger, "scanId", checkpoint.ScanID, "origin", checkpoint.Origin)
		return &s, nil
	}
	if checkpoint.Final && r.cfg.Cursor.HeadResolved {
		r.logger.Infow("Previous scan is complete, starting from the current head", "ledger", r.cfg.Ledger, "scanId", checkpoint.ScanID)
		return &s, nil
	}

	restored, err := RestoreCursor(checkpoint.Cursor)
	if err != nil {
		return nil, errors.Wrapf(err, "restoring cursor of scan [%s]", checkpoint.ScanID)
	}
	s.id = checkpoint.ScanID
	s.origin = checkpoint.Origin
	s.cursor = restored
	s.aggregator = NewAggregatorFrom(checkpoint.Tally)
	s.processed = checkpoint.ProcessedUnits
	s.failed = checkpoint.FailedUnits
	for _, validator := range checkpoint.Validators {
		s.validators[validator] = struct{}{}
	}
	r.checkpoints.Seed(s.processed)
	r.logger.Infow("Resuming from checkpoint", "ledger", r.cfg.Ledger, "scanId", s.id, "processed", s.processed, "blocks", s.aggregator.Total())
	return &s, nil
}

func (r *Runner) loop(ctx context.Context, s *scan) error {
	var iterations, stalls int
	for !s.cursor.Done() {
		if ctx.Err() != nil {
			return errors.Wrapf(entities.ErrScanInterrupted, "%v", ctx.Err())
		}
		if r.cfg.MaxIterations > 0 && iterations >= r.cfg.MaxIterations {
			return errors.Wrapf(entities.ErrIterationLimit, "stopped after %d batches", iterations)
		}
		iterations++

		units := s.cursor.Peek(r.cfg.BatchUnits)
		outcomes := r.scheduler.Execute(ctx, units, r.fetcher.Fetch)
		if ctx.Err() != nil {
			// the batch may be incomplete, keep the state of the previous one
			return errors.Wrapf(entities.ErrScanInterrupted, "%v", ctx.Err())
		}

		progress, err := s.cursor.Advance(outcomes)
		if err != nil {
			return errors.Wrap(err, "advancing cursor")
		}
		r.apply(s, progress)

		if progress.Moved {
			stalls = 0
		} else {
			stalls++
			if stalls >= r.cfg.MaxStalls {
				return errors.Wrapf(entities.ErrStalled, "no progress for %d batches at %+v", stalls, s.cursor.State())
			}
		}

		snapshot := func() entities.Checkpoint {
			r.sampleValidators(ctx, s)
			return r.checkpoint(s)
		}
		if r.checkpoints.MaybeCheckpoint(s.processed, snapshot) {
			r.writeArtifacts(s)
		}
		r.status.Store(r.report(s, false))

		r.logger.Debugw("Processed batch", "ledger", r.cfg.Ledger, "units", len(units), "consumed", progress.Consumed,
			"failed", len(progress.Failed), "blocks", s.aggregator.Total(), "producers", s.aggregator.Producers())
	}
	return nil
}

func (r *Runner) apply(s *scan, progress Progress) {
	var recorded uint64
	for _, block := range progress.Accepted {
		blocks := block.Blocks
		if blocks == 0 {
			blocks = 1
		}
		s.aggregator.RecordBlocks(block.Producer, blocks)
		recorded += blocks
	}

	failures := progress.Failed
	if progress.Consumed == 0 && len(failures) > 0 {
		stuckOn := failures[0].Unit.String()
		if stuckOn == s.stuckOn {
			failures = nil
		}
		s.stuckOn = stuckOn
	} else if progress.Moved {
		s.stuckOn = ""
	}

	now := time.Now().UTC()
	for _, outcome := range failures {
		reason := "unknown"
		if outcome.Err != nil {
			reason = outcome.Err.Error()
		}
		r.logger.Warnw("Unit failed", "ledger", r.cfg.Ledger, "unit", outcome.Unit.String(), "attempts", outcome.Attempts, "error", reason)
		s.failures = append(s.failures, entities.UnitFailure{Unit: outcome.Unit.String(), Reason: reason, Attempts: outcome.Attempts, At: now})
	}
	if len(s.failures) > maxReportedFailures {
		s.failures = s.failures[len(s.failures)-maxReportedFailures:]
	}

	s.processed += uint64(progress.Consumed)
	s.failed += uint64(len(failures))

	r.metrics.AddProcessedUnits(progress.Consumed)
	r.metrics.AddFailedUnits(len(failures))
	r.metrics.AddRecordedBlocks(recorded)
	r.metrics.SetUniqueProducers(s.aggregator.Producers())
	r.metrics.SetCursorPosition(position(s.cursor.State()))
}

func (r *Runner) finish(ctx context.Context, s *scan) (*entities.Report, error) {
	report := r.report(s, true)
	tally := s.aggregator.Snapshot()
	r.sampleValidators(ctx, s)
	addParticipation(report, tally, s.validators)

	err := r.checkpoints.Finalize(r.checkpoint(s))
	if err != nil {
		r.logger.Errorw("Final checkpoint failed", "ledger", r.cfg.Ledger, "error", err)
		report.PersistenceError = err.Error()
	}
	r.writeArtifacts(s)
	r.status.Store(report)

	for _, publisher := range r.publishers {
		publishErr := func() error {
			publishCtx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
			defer cancel()
			return publisher.PublishReport(publishCtx, report, tally)
		}()
		if publishErr != nil {
			r.logger.Errorw("Publishing report failed", "ledger", r.cfg.Ledger, "error", publishErr)
		}
	}

	r.logger.Infow("Finished scan", "ledger", r.cfg.Ledger, "scanId", s.id, "blocks", report.TotalBlocks,
		"producers", report.UniqueProducers, "failed", report.FailedUnits, "duration", time.Since(s.startedAt))
	return report, err
}

// sampleValidators adds the current active validator set to the scan. Ledgers rotate their sets,
// so the set is sampled at every checkpoint and at the end of the scan.
func (r *Runner) sampleValidators(ctx context.Context, s *scan) {
	validatorSet, ok := r.fetcher.(ValidatorSetFetcher)
	if !ok {
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()

	active, err := validatorSet.ActiveValidators(fetchCtx)
	if err != nil {
		r.logger.Warnw("Fetching active validators failed", "ledger", r.cfg.Ledger, "error", err)
		return
	}
	for _, validator := range active {
		s.validators[validator] = struct{}{}
	}
}

func addParticipation(report *entities.Report, tally map[string]uint64, validators map[string]struct{}) {
	if len(validators) == 0 {
		return
	}
	var producing int
	for validator := range validators {
		if _, found := tally[validator]; found {
			producing++
		}
	}
	report.ActiveValidators = len(validators)
	report.Participation = percentage(uint64(producing), uint64(len(validators)))
}

func (r *Runner) writeArtifacts(s *scan) {
	if r.artifacts == nil {
		return
	}
	err := r.artifacts.WriteArtifacts(r.cfg.Ledger, s.aggregator.Snapshot())
	if err != nil {
		r.logger.Errorw("Writing artifacts failed", "ledger", r.cfg.Ledger, "error", err)
	}
}

func (r *Runner) checkpoint(s *scan) entities.Checkpoint {
	return entities.Checkpoint{
		ScanID:         s.id,
		Ledger:         r.cfg.Ledger,
		Origin:         s.origin,
		Cursor:         s.cursor.State(),
		Tally:          s.aggregator.Snapshot(),
		TotalBlocks:    s.aggregator.Total(),
		ProcessedUnits: s.processed,
		FailedUnits:    s.failed,
		Validators:     slices.Sorted(maps.Keys(s.validators)),
		Timestamp:      time.Now().UTC(),
	}
}

func (r *Runner) report(s *scan, complete bool) *entities.Report {
	report := BuildReport(r.cfg.Ledger, s.aggregator, r.cfg.Buckets, r.cfg.Threshold)
	report.ScanID = s.id
	report.ProcessedUnits = s.processed
	report.FailedUnits = s.failed
	report.Failures = append([]entities.UnitFailure(nil), s.failures...)
	report.Cursor = s.cursor.State()
	report.Complete = complete
	report.StartedAt = s.startedAt
	return report
}

// sameRange reports whether a checkpoint belongs to the configured range. When the open bound was
// filled from the chain head it moves between runs and is left out of the comparison.
func sameRange(checkpoint, configured entities.CursorState, headResolved bool) bool {
	if headResolved {
		switch configured.Kind {
		case entities.CursorHeight:
			checkpoint.Current, configured.Current = 0, 0
		case entities.CursorSlotBatch:
			checkpoint.Upper, configured.Upper = 0, 0
		}
	}
	return checkpoint.Equal(configured)
}

// BuildReport computes the tally derived figures of a report.
func BuildReport(ledger string, aggregator *Aggregator, buckets []entities.BucketRange, threshold float64) *entities.Report {
	report := entities.Report{
		Ledger:              ledger,
		TotalBlocks:         aggregator.Total(),
		UniqueProducers:     aggregator.Producers(),
		Distribution:        aggregator.Distribution(buckets),
		Threshold:           threshold,
		UniqueProducerShare: percentage(uint64(aggregator.Producers()), aggregator.Total()),
		UpdatedAt:           time.Now().UTC(),
	}
	if n, ok := aggregator.Superminority(threshold); ok {
		report.Superminority = &n
	}
	return &report
}

// ReportFromCheckpoint rebuilds a report from a persisted checkpoint.
func ReportFromCheckpoint(checkpoint entities.Checkpoint, buckets []entities.BucketRange, threshold float64) *entities.Report {
	report := BuildReport(checkpoint.Ledger, NewAggregatorFrom(checkpoint.Tally), buckets, threshold)
	report.ScanID = checkpoint.ScanID
	report.ProcessedUnits = checkpoint.ProcessedUnits
	report.FailedUnits = checkpoint.FailedUnits
	report.Cursor = checkpoint.Cursor
	report.Complete = checkpoint.Final
	report.UpdatedAt = checkpoint.Timestamp
	validators := make(map[string]struct{}, len(checkpoint.Validators))
	for _, validator := range checkpoint.Validators {
		validators[validator] = struct{}{}
	}
	addParticipation(report, checkpoint.Tally, validators)
	return report
}

// position is the cursor state in its native unit, for the cursor position gauge.
func position(state entities.CursorState) uint64 {
	switch state.Kind {
	case entities.CursorHeight:
		return state.Current
	case entities.CursorSlotBatch:
		return state.NextSlot
	case entities.CursorDate:
		return state.Offset
	default:
		return 0
	}
}
