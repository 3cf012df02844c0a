// Command crate sorts incoming music albums into the export trees.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/crate/internal/errmsg"
)

func main() {
	cmd, err := newRootCommand().ExecuteC()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, errmsg.Format(commandOp(cmd), err))
		}
		os.Exit(1)
	}
}

// commandOp returns the operation a subcommand performs.
func commandOp(cmd *cobra.Command) errmsg.Op {
	if cmd == nil {
		return errmsg.OpRun
	}
	switch cmd.Name() {
	case "retag":
		return errmsg.OpGenreRetag
	case "history":
		return errmsg.OpHistoryList
	default:
		return errmsg.OpRun
	}
}
