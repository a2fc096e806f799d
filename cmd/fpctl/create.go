package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/filepool/filepool"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create an empty pool file",
		Long: `The create command initializes a new pool file holding a single segment.
The segment size is 2^segment-shift bytes and cannot be changed later.

Example:
  fpctl create data.pool
  fpctl create data.pool --segment-shift 16`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}
	return cmd
}

func runCreate(args []string) (err error) {
	path := args[0]

	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}

	p, err := filepool.Open(path, false, poolParams())
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	defer closePool(p, &err)

	if jsonOut {
		stats, err := p.Stats()
		if err != nil {
			return err
		}
		return printJSON(stats)
	}
	printInfo("Created pool: %s\n", path)
	printInfo("  Segment size: %s\n", humanize.IBytes(uint64(1)<<p.SegmentShift()))
	printInfo("  Max allocation: %s\n", humanize.IBytes(uint64(p.MaxAllocSize())))
	return nil
}
