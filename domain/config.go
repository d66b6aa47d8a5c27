package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

type Config struct {
	Ledger string       `validate:"required"`
	Cursor CursorConfig `validate:"required"`

	// fetching
	BatchUnits      int           `validate:"min=1"`
	Concurrency     int           `validate:"min=1"`
	RequestInterval time.Duration `validate:"gte=0"`
	RequestTimeout  time.Duration `validate:"gt=0"`
	MaxAttempts     int           `validate:"min=1"`
	BackoffBase     time.Duration `validate:"gt=0"`
	BackoffMax      time.Duration `validate:"gtefield=BackoffBase"`

	// 0 disables the limit
	MaxIterations int `validate:"gte=0"`
	MaxStalls     int `validate:"min=1"`

	CheckpointInterval uint64 `validate:"min=1"`
	Resume             bool

	Buckets   []entities.BucketRange `validate:"required,min=1"`
	Threshold float64                `validate:"gt=0,lte=100"`

	// bounds sinks and the validator set lookup at the end of a scan
	PublishTimeout time.Duration `validate:"gt=0"`
}

func DefaultConfig(ledger string, cursor CursorConfig) Config {
	buckets, _ := ParseBucketRanges(DefaultBuckets...)
	return Config{
		Ledger:             ledger,
		Cursor:             cursor,
		BatchUnits:         50,
		Concurrency:        10,
		RequestInterval:    100 * time.Millisecond,
		RequestTimeout:     15 * time.Second,
		MaxAttempts:        3,
		BackoffBase:        300 * time.Millisecond,
		BackoffMax:         10 * time.Second,
		MaxStalls:          10,
		CheckpointInterval: 1000,
		Resume:             true,
		Buckets:            buckets,
		Threshold:          DefaultSuperminorityThreshold,
		PublishTimeout:     30 * time.Second,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrapf(entities.ErrConfiguration, "validating scan config: %v", err)
	}
	for i := 1; i < len(cfg.Buckets); i++ {
		if cfg.Buckets[i].Min <= cfg.Buckets[i-1].Max {
			return errors.Wrapf(entities.ErrConfiguration, "bucket [%s] overlaps [%s]", cfg.Buckets[i].Label, cfg.Buckets[i-1].Label)
		}
	}
	return nil
}

func (cfg Config) schedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Concurrency:     cfg.Concurrency,
		RequestInterval: cfg.RequestInterval,
		RequestTimeout:  cfg.RequestTimeout,
		Backoff: Backoff{
			Base:        cfg.BackoffBase,
			Max:         cfg.BackoffMax,
			MaxAttempts: cfg.MaxAttempts,
		},
	}
}
