package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var allocFill uint8

func init() {
	rootCmd.AddCommand(newAllocCmd())
}

func newAllocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc <file> <size>",
		Short: "Allocate a block and print its RVA",
		Long: `The alloc command reserves size bytes in the pool, fills them with the
fill byte and prints the RVA of the allocation. Sizes accept units
such as 4KiB or 1MB.

Example:
  fpctl alloc data.pool 128
  fpctl alloc data.pool 4KiB --fill 0xff`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc(args)
		},
	}
	cmd.Flags().Uint8Var(&allocFill, "fill", 0, "Byte written over the allocation")
	return cmd
}

func runAlloc(args []string) (err error) {
	path := args[0]

	size, err := humanize.ParseBytes(args[1])
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[1], err)
	}
	if size > math.MaxUint32 {
		return fmt.Errorf("size %s does not fit in 32 bits", humanize.IBytes(size))
	}

	p, err := openPool(path, false)
	if err != nil {
		return err
	}
	defer closePool(p, &err)

	b, rva, err := p.Alloc(uint32(size))
	if err != nil {
		return fmt.Errorf("failed to allocate %d bytes: %w", size, err)
	}
	for i := range b {
		b[i] = allocFill
	}
	p.Deref(b)

	if err := p.Flush(); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"rva":  uint32(rva),
			"size": size,
		})
	}
	printInfo("%s\n", formatRVA(rva))
	return nil
}
