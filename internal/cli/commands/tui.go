package commands

import (
	"github.com/spf13/cobra"

	"github.com/kavinsood/kite/internal/cli/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and read notes interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			return tui.Run(a.reg, a.index, a.bestContent)
		},
	}
}
