// Package stats implements the optimizer's statistics layer: per-column
// equi-width histograms and per-table statistics that feed scan-cost and
// cardinality estimates.
package stats

import (
	"fmt"

	"tupledb/pkg/storage/page"
	"tupledb/pkg/types"
)

// IntHistogram is a fixed-width histogram over a single integer column.
// Values in [min, max] are spread across numBuckets equal-width buckets;
// space and per-value time are constant in the number of values seen.
type IntHistogram struct {
	min        int64
	max        int64
	numBuckets int
	width      float64
	buckets    []int64
	total      int64
}

// NewIntHistogram creates a histogram with the given bucket count over the
// inclusive range [min, max].
func NewIntHistogram(buckets int, min, max int64) (*IntHistogram, error) {
	if buckets <= 0 {
		return nil, fmt.Errorf("bucket count must be positive, got %d", buckets)
	}
	if min > max {
		return nil, fmt.Errorf("invalid range [%d, %d]", min, max)
	}

	return &IntHistogram{
		min:        min,
		max:        max,
		numBuckets: buckets,
		width:      float64(max-min) / float64(buckets),
		buckets:    make([]int64, buckets),
	}, nil
}

// bucketIndex maps a value to its bucket. The max value belongs to the last
// bucket.
func (h *IntHistogram) bucketIndex(v int64) int {
	if v == h.max {
		return h.numBuckets - 1
	}
	if h.width == 0 {
		return 0
	}
	return int(float64(v-h.min) / h.width)
}

// AddValue records one value. Values outside [min, max] are rejected.
func (h *IntHistogram) AddValue(v int64) error {
	if v < h.min || v > h.max {
		return page.NewDbError(page.CodeOutOfRange,
			"value %d outside histogram range [%d, %d]", v, h.min, h.max)
	}
	h.buckets[h.bucketIndex(v)]++
	h.total++
	return nil
}

// EstimateSelectivity predicts the fraction of recorded values satisfying
// `value op v`.
func (h *IntHistogram) EstimateSelectivity(op types.Predicate, v int64) float64 {
	if h.total == 0 {
		return 0.0
	}

	switch op {
	case types.LessThan:
		if v <= h.min {
			return 0.0
		}
		if v >= h.max {
			return 1.0
		}
		idx := h.bucketIndex(v)
		selectivity := 0.0
		for i := 0; i < idx; i++ {
			selectivity += float64(h.buckets[i]) / float64(h.total)
		}
		// Partial contribution of the bucket containing v, assuming a
		// uniform distribution inside the bucket.
		bucketLeft := float64(h.min) + float64(idx)*h.width
		selectivity += float64(h.buckets[idx]) * (float64(v) - bucketLeft) / (h.width * float64(h.total))
		return selectivity

	case types.Equals:
		if v < h.min || v > h.max {
			return 0.0
		}
		return float64(h.buckets[h.bucketIndex(v)]) / float64(int64(h.width)+1) / float64(h.total)

	case types.NotEqual:
		return 1.0 - h.EstimateSelectivity(types.Equals, v)

	case types.GreaterThan:
		return 1.0 - h.EstimateSelectivity(types.LessThanOrEqual, v)

	case types.LessThanOrEqual:
		return h.EstimateSelectivity(types.LessThan, v+1)

	case types.GreaterThanOrEqual:
		return h.EstimateSelectivity(types.GreaterThan, v-1)

	default:
		return 0.0
	}
}

// AvgSelectivity returns the average selectivity over all recorded values.
func (h *IntHistogram) AvgSelectivity() float64 {
	var sum int64
	for _, count := range h.buckets {
		sum += count
	}
	if sum == 0 {
		return 0.0
	}
	return float64(sum) / float64(h.total)
}

// Total returns the number of values recorded.
func (h *IntHistogram) Total() int64 {
	return h.total
}

func (h *IntHistogram) String() string {
	return fmt.Sprintf("IntHistogram(buckets=%d, range=[%d, %d], total=%d)",
		h.numBuckets, h.min, h.max, h.total)
}
