package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/filepool/filepool"
)

func init() {
	rootCmd.AddCommand(newLsCmd())
}

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <file>",
		Short: "List live allocations",
		Long: `The ls command lists every live allocation in RVA order with its segment
and usable capacity.

Example:
  fpctl ls data.pool
  fpctl ls data.pool --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(args)
		},
	}
	return cmd
}

type allocationEntry struct {
	RVA      uint32 `json:"rva"`
	Segment  uint32 `json:"segment"`
	Offset   uint32 `json:"offset"`
	Capacity uint32 `json:"capacity"`
}

func runLs(args []string) (err error) {
	p, err := openPool(args[0], true)
	if err != nil {
		return err
	}
	defer closePool(p, &err)

	entries := []allocationEntry{}
	err = p.Allocations(func(rva filepool.RVA, capacity uint32) bool {
		seg, off, _ := p.DecodeRVA(rva)
		entries = append(entries, allocationEntry{
			RVA:      uint32(rva),
			Segment:  seg,
			Offset:   off,
			Capacity: capacity,
		})
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to list allocations: %w", err)
	}

	if jsonOut {
		return printJSON(entries)
	}
	if quiet {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RVA\tSEGMENT\tOFFSET\tCAPACITY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%#x\t%s\n",
			formatRVA(filepool.RVA(e.RVA)), e.Segment, e.Offset, humanize.IBytes(uint64(e.Capacity)))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	printVerbose("%d allocation(s)\n", len(entries))
	return nil
}

// findAllocation looks up the allocation whose body starts at rva and
// returns its capacity.
func findAllocation(p *filepool.Pool, rva filepool.RVA) (uint32, bool, error) {
	var capacity uint32
	found := false
	err := p.Allocations(func(r filepool.RVA, c uint32) bool {
		if r == rva {
			capacity, found = c, true
		}
		return r < rva
	})
	return capacity, found, err
}
