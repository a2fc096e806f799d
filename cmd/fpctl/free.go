package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newFreeCmd())
}

func newFreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free <file> <rva>",
		Short: "Release the allocation at an RVA",
		Long: `The free command releases the allocation whose body starts at rva.

Example:
  fpctl free data.pool 0x148`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFree(args)
		},
	}
	return cmd
}

func runFree(args []string) (err error) {
	path := args[0]
	rva, err := parseRVA(args[1])
	if err != nil {
		return err
	}

	p, err := openPool(path, false)
	if err != nil {
		return err
	}
	defer closePool(p, &err)

	// FreeRVA panics on an RVA that does not start an allocation.
	if _, found, err := findAllocation(p, rva); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("no allocation at %s", formatRVA(rva))
	}
	ok, err := p.FreeRVA(rva)
	if err != nil {
		return fmt.Errorf("failed to free %s: %w", formatRVA(rva), err)
	}
	if !ok {
		return fmt.Errorf("no allocation at %s", formatRVA(rva))
	}
	if err := p.Flush(); err != nil {
		return err
	}

	printInfo("Freed %s\n", formatRVA(rva))
	return nil
}
