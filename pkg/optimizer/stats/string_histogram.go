package stats

import (
	boom "github.com/tylertreat/BoomFilters"

	"tupledb/pkg/types"
)

const (
	// stringHashChars is how many leading characters participate in the
	// string-to-integer mapping.
	stringHashChars = 4

	// maxStringHash is the largest mapped value: four characters of 127
	// in base 128, i.e. 128^4 - 1.
	maxStringHash = int64(1)<<(7*stringHashChars) - 1
)

// stringToInt maps a string to a bounded integer by treating its first
// four characters as a base-128 number. Bytes above 127 are clamped, so
// the result always lands in [0, maxStringHash].
func stringToInt(s string) int64 {
	var v int64
	for i := 0; i < stringHashChars; i++ {
		v *= 128
		if i < len(s) {
			c := int64(s[i])
			if c > 127 {
				c = 127
			}
			v += c
		}
	}
	return v
}

// StringHistogram estimates selectivities over a string column. Range
// predicates delegate to an equi-width integer histogram over the hashed
// values; equality uses a count-min sketch, which keeps per-value counts
// accurate without storing the strings themselves.
type StringHistogram struct {
	hist *IntHistogram
	cms  *boom.CountMinSketch
}

// NewStringHistogram creates a string histogram with the given number of
// buckets for the range estimates.
func NewStringHistogram(buckets int) (*StringHistogram, error) {
	hist, err := NewIntHistogram(buckets, 0, maxStringHash)
	if err != nil {
		return nil, err
	}
	return &StringHistogram{
		hist: hist,
		cms:  boom.NewCountMinSketch(0.001, 0.999),
	}, nil
}

// AddValue records one string.
func (h *StringHistogram) AddValue(s string) error {
	if err := h.hist.AddValue(stringToInt(s)); err != nil {
		return err
	}
	h.cms.Add([]byte(s))
	return nil
}

// EstimateSelectivity predicts the fraction of recorded strings satisfying
// `value op s`.
func (h *StringHistogram) EstimateSelectivity(op types.Predicate, s string) float64 {
	switch op {
	case types.Equals:
		total := h.cms.TotalCount()
		if total == 0 {
			return 0.0
		}
		return float64(h.cms.Count([]byte(s))) / float64(total)
	case types.NotEqual:
		return 1.0 - h.EstimateSelectivity(types.Equals, s)
	default:
		return h.hist.EstimateSelectivity(op, stringToInt(s))
	}
}

// AvgSelectivity returns the average selectivity over recorded strings.
func (h *StringHistogram) AvgSelectivity() float64 {
	return h.hist.AvgSelectivity()
}
