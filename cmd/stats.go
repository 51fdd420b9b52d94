package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tupledb/pkg/memory"
	"tupledb/pkg/optimizer/stats"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/heap"
	"tupledb/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats <heap-file>",
	Short: "Compute and print table statistics for a heap file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		td, err := parseSchema(schemaSpec)
		if err != nil {
			return err
		}

		hf, err := heap.NewHeapFile(primitives.Filepath(args[0]), td)
		if err != nil {
			return err
		}
		defer hf.Close()

		tables := memory.NewTableManager()
		if err := tables.AddTable(hf, args[0], ""); err != nil {
			return err
		}
		ps := memory.NewPageStore(tables, cfg.BufferPages, nil)
		ps.SetLockTimeout(cfg.LockTimeout())

		tableStats, err := stats.NewTableStats(ps, hf.GetID(), stats.IOCostPerPage)
		if err != nil {
			return err
		}

		fmt.Printf("tuples: %d  pages: %d  scan cost: %.0f\n",
			tableStats.TotalTuples(), tableStats.NumPages(), tableStats.EstimateScanCost())

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"field", "type", "avg selectivity"})
		for i := 0; i < td.NumFields(); i++ {
			name, _ := td.GetFieldName(i)
			fieldType, _ := td.TypeAtIndex(i)
			avg, err := tableStats.AvgSelectivity(i, types.Equals)
			if err != nil {
				continue
			}
			table.Append([]string{name, fieldType.String(), fmt.Sprintf("%.4f", avg)})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
