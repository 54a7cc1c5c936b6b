package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	pinStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List notes, pinned first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			out := cmd.OutOrStdout()

			notes := a.reg.Notes()
			if len(notes) == 0 {
				fmt.Fprintln(out, "no notes yet; create one with 'kite new'")
				return nil
			}

			pins := a.sess.Pinned()
			for _, n := range notes {
				marker := "  "
				if pins[n.ID] {
					marker = pinStyle.Render("▸ ")
				}
				fmt.Fprintf(out, "%s%s  %s  %s\n%s%s\n",
					marker,
					dimStyle.Render(shortID(n.ID)),
					titleStyle.Render(truncate(n.Title, 40)),
					dimStyle.Render(formatWhen(n.UpdatedAt)),
					"            ",
					dimStyle.Render(truncate(n.Preview, 60)),
				)
			}
			return nil
		},
	}
}
