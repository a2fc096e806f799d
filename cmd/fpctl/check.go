package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/filepool/filepool"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Verify pool invariants",
		Long: `The check command walks every segment and free list and reports the first
inconsistency found: bitmap and free count mismatches, broken spans, or
segments filed on the wrong free list.

Example:
  fpctl check data.pool`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args)
		},
	}
	return cmd
}

type checkResult struct {
	Valid   bool   `json:"valid"`
	Type    string `json:"type,omitempty"`
	Segment int64  `json:"segment"`
	Block   int64  `json:"block"`
	Message string `json:"message,omitempty"`
}

func runCheck(args []string) (err error) {
	p, err := openPool(args[0], true)
	if err != nil {
		return err
	}
	defer closePool(p, &err)

	checkErr := p.Check()
	var verr *filepool.ValidationError
	if checkErr != nil && !errors.As(checkErr, &verr) {
		return checkErr
	}

	if jsonOut {
		res := checkResult{Valid: checkErr == nil, Segment: -1, Block: -1}
		if verr != nil {
			res.Type, res.Segment, res.Block, res.Message = verr.Type, verr.Segment, verr.Block, verr.Message
		}
		if err := printJSON(res); err != nil {
			return err
		}
	} else if checkErr == nil {
		printInfo("✓ %s is consistent\n", args[0])
	}
	if checkErr != nil {
		return fmt.Errorf("pool is inconsistent: %w", checkErr)
	}
	return nil
}
