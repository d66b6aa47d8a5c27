package domain

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

var (
	DefaultBuckets = []string{"1-10", "11-50", "51-100", "101-500", "501+"}
	// WideBuckets suit ledgers with few producers and many blocks each.
	WideBuckets = []string{"1-100", "101-250", "251-500", "501-1000", "1001-2500", "2501+"}
)

// ParseBucketRanges parses ranges like "11-50" or "501+" (open ended). The order is kept, the
// first matching range wins when bucketing.
func ParseBucketRanges(specs ...string) ([]entities.BucketRange, error) {
	ranges := make([]entities.BucketRange, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		r, err := parseBucketRange(spec)
		if err != nil {
			return nil, errors.Wrapf(entities.ErrConfiguration, "bucket range [%s]: %v", spec, err)
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, errors.Wrap(entities.ErrConfiguration, "no bucket ranges")
	}
	return ranges, nil
}

func parseBucketRange(spec string) (entities.BucketRange, error) {
	if lower, ok := strings.CutSuffix(spec, "+"); ok {
		minimum, err := strconv.ParseUint(lower, 10, 64)
		if err != nil {
			return entities.BucketRange{}, errors.Wrap(err, "parsing lower bound")
		}
		return entities.BucketRange{Label: spec, Min: minimum, Max: entities.Unbounded}, nil
	}

	lower, upper, found := strings.Cut(spec, "-")
	if !found {
		return entities.BucketRange{}, errors.New("expected <min>-<max> or <min>+")
	}
	minimum, err := strconv.ParseUint(lower, 10, 64)
	if err != nil {
		return entities.BucketRange{}, errors.Wrap(err, "parsing lower bound")
	}
	maximum, err := strconv.ParseUint(upper, 10, 64)
	if err != nil {
		return entities.BucketRange{}, errors.Wrap(err, "parsing upper bound")
	}
	if maximum < minimum {
		return entities.BucketRange{}, errors.New("upper bound below lower bound")
	}
	return entities.BucketRange{Label: spec, Min: minimum, Max: maximum}, nil
}
