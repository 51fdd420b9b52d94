package stats

import (
	"fmt"
	"math"
	"sync"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/execution"
	"tupledb/pkg/logging"
	"tupledb/pkg/memory"
	"tupledb/pkg/primitives"
	"tupledb/pkg/types"
)

const (
	// IOCostPerPage is the default cost charged for reading one page.
	IOCostPerPage = 1000

	// NumHistBins is the number of buckets per column histogram.
	NumHistBins = 100
)

// TableStats aggregates per-column histograms for one table and turns them
// into scan-cost, cardinality, and selectivity estimates.
//
// Building the stats takes two sequential scans: the first finds each
// integer column's (min, max) so the histograms can be sized, the second
// populates them.
type TableStats struct {
	tableID       primitives.TableID
	ioCostPerPage int
	numTuples     int
	numPages      int
	intHists      map[int]*IntHistogram
	stringHists   map[int]*StringHistogram
}

// statsRegistry is the process-wide name -> TableStats map filled by
// ComputeStatistics and read through GetTableStats.
var (
	statsRegistry   = make(map[string]*TableStats)
	statsRegistryMu sync.RWMutex
)

// GetTableStats returns the registered statistics for a table name.
func GetTableStats(tableName string) *TableStats {
	statsRegistryMu.RLock()
	defer statsRegistryMu.RUnlock()
	return statsRegistry[tableName]
}

// SetTableStats registers statistics under a table name.
func SetTableStats(tableName string, stats *TableStats) {
	statsRegistryMu.Lock()
	defer statsRegistryMu.Unlock()
	statsRegistry[tableName] = stats
}

// ComputeStatistics builds and registers statistics for every table in the
// catalog.
func ComputeStatistics(ps *memory.PageStore) error {
	for _, tableID := range ps.Tables().TableIDs() {
		stats, err := NewTableStats(ps, tableID, IOCostPerPage)
		if err != nil {
			return fmt.Errorf("failed to compute stats for table %d: %w", tableID, err)
		}
		name, err := ps.Tables().GetTableName(tableID)
		if err != nil {
			return err
		}
		SetTableStats(name, stats)
	}
	return nil
}

// NewTableStats scans the table and builds one histogram per column.
func NewTableStats(ps *memory.PageStore, tableID primitives.TableID, ioCostPerPage int) (*TableStats, error) {
	dbFile, err := ps.Tables().GetDbFile(tableID)
	if err != nil {
		return nil, err
	}
	td := dbFile.GetTupleDesc()
	numFields := td.NumFields()

	ts := &TableStats{
		tableID:       tableID,
		ioCostPerPage: ioCostPerPage,
		intHists:      make(map[int]*IntHistogram),
		stringHists:   make(map[int]*StringHistogram),
	}

	mins := make([]int64, numFields)
	maxs := make([]int64, numFields)
	for i := range mins {
		mins[i] = math.MaxInt32
		maxs[i] = math.MinInt32
	}

	// First pass: per-column (min, max) for the integer columns, plus the
	// tuple count.
	tid := transaction.NewTransactionID()
	scan, err := execution.NewSeqScan(ps, tid, tableID)
	if err != nil {
		return nil, err
	}
	if err := scan.Open(); err != nil {
		return nil, err
	}
	for {
		hasNext, err := scan.HasNext()
		if err != nil {
			scan.Close()
			return nil, err
		}
		if !hasNext {
			break
		}
		t, err := scan.Next()
		if err != nil {
			scan.Close()
			return nil, err
		}

		ts.numTuples++
		for i := 0; i < numFields; i++ {
			field, err := t.GetField(i)
			if err != nil {
				continue
			}
			if intField, ok := field.(*types.IntField); ok {
				v := int64(intField.Value)
				mins[i] = min(mins[i], v)
				maxs[i] = max(maxs[i], v)
			}
		}
	}

	for i := 0; i < numFields; i++ {
		fieldType, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		switch fieldType {
		case types.IntType:
			lo, hi := mins[i], maxs[i]
			if lo > hi {
				lo, hi = 0, 0
			}
			hist, err := NewIntHistogram(NumHistBins, lo, hi)
			if err != nil {
				return nil, err
			}
			ts.intHists[i] = hist
		case types.StringType:
			hist, err := NewStringHistogram(NumHistBins)
			if err != nil {
				return nil, err
			}
			ts.stringHists[i] = hist
		}
	}

	// Second pass: populate the histograms.
	if err := scan.Rewind(); err != nil {
		return nil, err
	}
	for {
		hasNext, err := scan.HasNext()
		if err != nil {
			scan.Close()
			return nil, err
		}
		if !hasNext {
			break
		}
		t, err := scan.Next()
		if err != nil {
			scan.Close()
			return nil, err
		}

		for i := 0; i < numFields; i++ {
			field, err := t.GetField(i)
			if err != nil {
				continue
			}
			switch f := field.(type) {
			case *types.IntField:
				if err := ts.intHists[i].AddValue(int64(f.Value)); err != nil {
					logging.GetLogger().Warn("histogram rejected value",
						"table", tableID, "field", i, "error", err)
				}
			case *types.StringField:
				if err := ts.stringHists[i].AddValue(f.Value); err != nil {
					logging.GetLogger().Warn("histogram rejected value",
						"table", tableID, "field", i, "error", err)
				}
			}
		}
	}
	scan.Close()

	numPages, err := dbFile.NumPages()
	if err != nil {
		return nil, err
	}
	ts.numPages = numPages

	if err := ps.TransactionComplete(tid, true); err != nil {
		return nil, err
	}
	return ts, nil
}

// EstimateScanCost estimates the cost of a full sequential scan: every page
// costs a full page read, however few tuples it holds.
func (ts *TableStats) EstimateScanCost() float64 {
	return float64(ts.numPages) * float64(ts.ioCostPerPage)
}

// EstimateTableCardinality estimates how many tuples a scan with the given
// selectivity produces.
func (ts *TableStats) EstimateTableCardinality(selectivity float64) int {
	return int(float64(ts.numTuples) * selectivity)
}

// EstimateSelectivity estimates the selectivity of `field op constant`.
func (ts *TableStats) EstimateSelectivity(field int, op types.Predicate, constant types.Field) (float64, error) {
	switch c := constant.(type) {
	case *types.IntField:
		hist, exists := ts.intHists[field]
		if !exists {
			return 0, fmt.Errorf("no integer histogram for field %d", field)
		}
		return hist.EstimateSelectivity(op, int64(c.Value)), nil
	case *types.StringField:
		hist, exists := ts.stringHists[field]
		if !exists {
			return 0, fmt.Errorf("no string histogram for field %d", field)
		}
		return hist.EstimateSelectivity(op, c.Value), nil
	default:
		return 0, fmt.Errorf("unsupported constant type for selectivity estimate")
	}
}

// AvgSelectivity returns the average selectivity of the field under op.
func (ts *TableStats) AvgSelectivity(field int, op types.Predicate) (float64, error) {
	if hist, exists := ts.intHists[field]; exists {
		return hist.AvgSelectivity(), nil
	}
	if hist, exists := ts.stringHists[field]; exists {
		return hist.AvgSelectivity(), nil
	}
	return 0, fmt.Errorf("no histogram for field %d", field)
}

// TotalTuples returns the number of tuples counted during the scan.
func (ts *TableStats) TotalTuples() int {
	return ts.numTuples
}

// NumPages returns the page count observed when the stats were built.
func (ts *TableStats) NumPages() int {
	return ts.numPages
}
