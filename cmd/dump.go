package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"tupledb/pkg/debug/heapreader"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/heap"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <heap-file>",
	Short: "Print every tuple stored in a heap file",
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

		return heapreader.Dump(os.Stdout, hf)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
