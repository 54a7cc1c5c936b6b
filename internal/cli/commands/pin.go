package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin a note to the top of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPinned(cmd, args[0], true)
		},
	}
}

func newUnpinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <id>",
		Short: "Unpin a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPinned(cmd, args[0], false)
		},
	}
}

func setPinned(cmd *cobra.Command, prefix string, pinned bool) error {
	a := appFrom(cmd)
	note, err := a.resolveID(prefix)
	if err != nil {
		return err
	}
	if err := a.sess.SetPinned(note.ID, pinned); err != nil {
		return fmt.Errorf("update pins: %w", err)
	}
	verb := "pinned"
	if !pinned {
		verb = "unpinned"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, shortID(note.ID), note.Title)
	return nil
}
