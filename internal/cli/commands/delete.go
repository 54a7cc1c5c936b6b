package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			note, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			a.reg.Delete(cmd.Context(), note.ID)
			a.index.Reconcile(a.reg.Notes())

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", shortID(note.ID), note.Title)
			return nil
		},
	}
}
