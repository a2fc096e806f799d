package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var readLen int

func init() {
	rootCmd.AddCommand(newReadCmd())
}

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <file> <rva>",
		Short: "Hex dump the bytes of an allocation",
		Long: `The read command dumps the allocation starting at rva. Without --len the
whole capacity of the allocation is shown.

Example:
  fpctl read data.pool 0x148
  fpctl read data.pool 0x148 --len 16`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(args)
		},
	}
	cmd.Flags().IntVarP(&readLen, "len", "n", 0, "Number of bytes to dump (0 = allocation capacity)")
	return cmd
}

func runRead(args []string) (err error) {
	rva, err := parseRVA(args[1])
	if err != nil {
		return err
	}

	p, err := openPool(args[0], true)
	if err != nil {
		return err
	}
	defer closePool(p, &err)

	capacity, found, err := findAllocation(p, rva)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no allocation at %s", formatRVA(rva))
	}
	n := int(capacity)
	if readLen > 0 && readLen < n {
		n = readLen
	}

	b, err := p.RefRVA(rva)
	if err != nil {
		return fmt.Errorf("failed to map %s: %w", formatRVA(rva), err)
	}
	defer p.DerefRVA(rva)

	data := b[:n]
	if jsonOut {
		return printJSON(map[string]any{
			"rva":  uint32(rva),
			"data": hex.EncodeToString(data),
		})
	}
	printInfo("%s", hex.Dump(data))
	return nil
}
