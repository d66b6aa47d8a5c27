package domain

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"github.com/qubic/go-producer-census/entities"
)

const DefaultSuperminorityThreshold = 33.0

// Aggregator owns the producer tally of one scan. It is not safe for concurrent writers; the
// runner is the only caller that records.
type Aggregator struct {
	tally map[string]uint64
	total uint64
}

func NewAggregator() *Aggregator {
	return &Aggregator{tally: make(map[string]uint64)}
}

// NewAggregatorFrom seeds an aggregator with a persisted tally.
func NewAggregatorFrom(tally map[string]uint64) *Aggregator {
	a := NewAggregator()
	for producer, blocks := range tally {
		a.add(producer, blocks)
	}
	return a
}

// Record counts one observed block for producer.
func (a *Aggregator) Record(producer string) {
	a.add(producer, 1)
}

// RecordBlocks counts several blocks at once, used for providers that return pre-aggregated rows.
func (a *Aggregator) RecordBlocks(producer string, blocks uint64) {
	a.add(producer, blocks)
}

func (a *Aggregator) add(producer string, blocks uint64) {
	if blocks == 0 {
		return
	}
	a.tally[producer] += blocks
	a.total += blocks
}

func (a *Aggregator) Total() uint64 {
	return a.total
}

func (a *Aggregator) Producers() int {
	return len(a.tally)
}

func (a *Aggregator) Count(producer string) uint64 {
	return a.tally[producer]
}

// Snapshot returns a copy of the tally.
func (a *Aggregator) Snapshot() map[string]uint64 {
	return maps.Clone(a.tally)
}

// Ranking returns producers ordered by descending block count. Ties are ordered by producer id
// so the result is deterministic.
func (a *Aggregator) Ranking() []entities.ProducerCount {
	ranking := make([]entities.ProducerCount, 0, len(a.tally))
	for producer, blocks := range a.tally {
		ranking = append(ranking, entities.ProducerCount{Producer: producer, Blocks: blocks})
	}
	slices.SortFunc(ranking, func(x, y entities.ProducerCount) int {
		if c := cmp.Compare(y.Blocks, x.Blocks); c != 0 {
			return c
		}
		return cmp.Compare(x.Producer, y.Producer)
	})
	return ranking
}

// Distribution puts every producer into the first range its block count falls into and returns
// per range the number of producers and their share of all blocks in percent.
func (a *Aggregator) Distribution(ranges []entities.BucketRange) []entities.DistributionBucket {
	buckets := make([]entities.DistributionBucket, len(ranges))
	for i, r := range ranges {
		buckets[i] = entities.DistributionBucket{Label: r.Label, Min: r.Min, Max: r.Max}
	}
	for _, blocks := range a.tally {
		for i := range buckets {
			if blocks >= buckets[i].Min && blocks <= buckets[i].Max {
				buckets[i].Validators++
				buckets[i].Blocks += blocks
				break
			}
		}
	}
	for i := range buckets {
		buckets[i].BlockShare = percentage(buckets[i].Blocks, a.total)
	}
	return buckets
}

// Superminority returns the minimum number of top producers whose combined share reaches
// thresholdPct percent of all blocks. The second result is false if no such prefix exists.
func (a *Aggregator) Superminority(thresholdPct float64) (int, bool) {
	if a.total == 0 {
		return 0, false
	}
	var cumulative uint64
	for i, pc := range a.Ranking() {
		cumulative += pc.Blocks
		if float64(cumulative)*100 >= thresholdPct*float64(a.total) {
			return i + 1, true
		}
	}
	return 0, false
}

// percentage rounds to two decimals.
func percentage(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
