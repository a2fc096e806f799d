package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newContextCmd())
}

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <file> [value]",
		Short: "Get or set the user context word",
		Long: `The context command prints the 64-bit user context stored in the pool
header, or replaces it when a value is given.

Example:
  fpctl context data.pool
  fpctl context data.pool 0x1000`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext(args)
		},
	}
	return cmd
}

func runContext(args []string) (err error) {
	set := len(args) == 2
	var value uint64
	if set {
		value, err = strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid context value %q: %w", args[1], err)
		}
	}

	p, err := openPool(args[0], !set)
	if err != nil {
		return err
	}
	defer closePool(p, &err)

	if set {
		if err := p.SetUserContext(value); err != nil {
			return err
		}
		if err := p.Flush(); err != nil {
			return err
		}
	}

	if jsonOut {
		return printJSON(map[string]uint64{"user_context": p.UserContext()})
	}
	printInfo("%#x\n", p.UserContext())
	return nil
}
