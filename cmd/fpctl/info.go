package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Report pool geometry and usage",
		Long: `The info command opens a pool read-only and reports its segment geometry,
block usage and free list occupancy.

Example:
  fpctl info data.pool
  fpctl info data.pool --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

func runInfo(args []string) (err error) {
	path := args[0]

	p, err := openPool(path, true)
	if err != nil {
		return err
	}
	defer closePool(p, &err)

	stats, err := p.Stats()
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	if jsonOut {
		return printJSON(stats)
	}

	printInfo("\nPool Information:\n")
	printInfo("  File: %s\n", path)
	if st, err := os.Stat(path); err == nil {
		printInfo("  Size: %s\n", humanize.IBytes(uint64(st.Size())))
	}
	printInfo("  Segments: %d x %s\n", stats.SegmentCount, humanize.IBytes(uint64(stats.SegmentSize)))
	printInfo("  Block size: %s\n", humanize.IBytes(uint64(stats.BlockSize)))
	printInfo("  Max allocation: %s\n", humanize.IBytes(uint64(stats.MaxAllocSize)))
	printInfo("  User context: %#x\n", stats.UserContext)

	bs := uint64(stats.BlockSize)
	printInfo("\nBlocks:\n")
	printInfo("  Used: %s (%s)\n", humanize.Comma(int64(stats.UsedBlocks)), humanize.IBytes(stats.UsedBlocks*bs))
	printInfo("  Free: %s (%s)\n", humanize.Comma(int64(stats.FreeBlocks)), humanize.IBytes(stats.FreeBlocks*bs))
	printInfo("  Headers: %s\n", humanize.Comma(int64(stats.HeaderBlocks)))

	printInfo("\nFree lists:\n")
	for class, n := range stats.FreeLists {
		if n > 0 {
			printInfo("  Class %d: %d segment(s)\n", class, n)
		}
	}
	return nil
}
