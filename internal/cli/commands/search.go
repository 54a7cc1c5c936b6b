package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search note titles and content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			out := cmd.OutOrStdout()
			query := strings.Join(args, " ")

			// a one-shot command hydrates fully before answering; there
			// is no next keystroke to catch up on
			a.index.WaitForHydration()

			results := a.index.SearchWithPositions(query, a.reg.Notes())
			if len(results) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, n := range results {
				fmt.Fprintf(out, "%s  %s  %s\n",
					dimStyle.Render(shortID(n.ID)),
					titleStyle.Render(truncate(n.Title, 40)),
					dimStyle.Render(formatWhen(n.UpdatedAt)),
				)
			}
			return nil
		},
	}
}
