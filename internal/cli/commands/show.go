package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"cat"},
		Short:   "Print a note's content",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			note, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			content, err := a.bestContent(ctx, note.ID)
			if err != nil {
				return fmt.Errorf("read note %s: %w", shortID(note.ID), err)
			}
			if err := a.sess.SetLastActiveID(note.ID); err != nil {
				a.logger.Warnw("remember last note", "error", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}
}
