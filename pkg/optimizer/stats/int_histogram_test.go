package stats

import (
	"errors"
	"math"
	"testing"

	"tupledb/pkg/storage/page"
	"tupledb/pkg/types"
)

// uniformHistogram builds the reference histogram: 10 buckets over [1, 10]
// with each value 1..10 added once.
func uniformHistogram(t *testing.T) *IntHistogram {
	t.Helper()
	h, err := NewIntHistogram(10, 1, 10)
	if err != nil {
		t.Fatalf("failed to create histogram: %v", err)
	}
	for v := int64(1); v <= 10; v++ {
		if err := h.AddValue(v); err != nil {
			t.Fatalf("add value %d failed: %v", v, err)
		}
	}
	return h
}

func TestIntHistogram_Selectivities(t *testing.T) {
	h := uniformHistogram(t)

	tests := []struct {
		name      string
		op        types.Predicate
		v         int64
		expected  float64
		tolerance float64
	}{
		{"less than mid", types.LessThan, 5, 0.4, 0.05},
		{"equals in range", types.Equals, 7, 0.1, 0.01},
		{"greater than max", types.GreaterThan, 10, 0.0, 0.001},
		{"less than min", types.LessThan, 1, 0.0, 0.001},
		{"less than above max", types.LessThan, 100, 1.0, 0.001},
		{"equals below range", types.Equals, -5, 0.0, 0.001},
		{"equals above range", types.Equals, 42, 0.0, 0.001},
		{"not equals in range", types.NotEqual, 7, 0.9, 0.01},
		{"greater or equal min", types.GreaterThanOrEqual, 1, 1.0, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.EstimateSelectivity(tt.op, tt.v)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("%s %d: expected %.3f (±%.3f), got %.3f",
					tt.op, tt.v, tt.expected, tt.tolerance, got)
			}
		})
	}
}

func TestIntHistogram_CountConservation(t *testing.T) {
	h, err := NewIntHistogram(5, 0, 100)
	if err != nil {
		t.Fatalf("failed to create histogram: %v", err)
	}

	values := []int64{0, 13, 50, 50, 99, 100}
	for i, v := range values {
		if err := h.AddValue(v); err != nil {
			t.Fatalf("add value %d failed: %v", v, err)
		}
		// Invariant: the bucket counts always sum to the total.
		var sum int64
		for _, c := range h.buckets {
			sum += c
		}
		if sum != h.total {
			t.Fatalf("after %d values: bucket sum %d != total %d", i+1, sum, h.total)
		}
	}
	if h.Total() != int64(len(values)) {
		t.Errorf("expected total %d, got %d", len(values), h.Total())
	}
}

func TestIntHistogram_RejectsOutOfRange(t *testing.T) {
	h, _ := NewIntHistogram(10, 0, 10)

	err := h.AddValue(11)
	var dbErr *page.DbError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DbError for out-of-range value, got %v", err)
	}
	if dbErr.Code != page.CodeOutOfRange {
		t.Errorf("expected %s, got %s", page.CodeOutOfRange, dbErr.Code)
	}
	if h.Total() != 0 {
		t.Error("rejected value must not change the total")
	}
}

func TestIntHistogram_MaxGoesToLastBucket(t *testing.T) {
	h, _ := NewIntHistogram(10, 0, 100)
	if err := h.AddValue(100); err != nil {
		t.Fatalf("adding max failed: %v", err)
	}
	if h.buckets[9] != 1 {
		t.Error("the max value should land in the last bucket")
	}
}

func TestIntHistogram_SingleValueRange(t *testing.T) {
	h, err := NewIntHistogram(10, 5, 5)
	if err != nil {
		t.Fatalf("failed to create degenerate histogram: %v", err)
	}
	if err := h.AddValue(5); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if got := h.EstimateSelectivity(types.Equals, 5); got <= 0 {
		t.Errorf("expected positive selectivity for the only value, got %f", got)
	}
}

func TestIntHistogram_AvgSelectivity(t *testing.T) {
	h := uniformHistogram(t)
	if got := h.AvgSelectivity(); math.Abs(got-1.0) > 0.001 {
		t.Errorf("expected avg selectivity 1.0, got %f", got)
	}

	empty, _ := NewIntHistogram(10, 0, 10)
	if got := empty.AvgSelectivity(); got != 0.0 {
		t.Errorf("expected 0 for empty histogram, got %f", got)
	}
}
