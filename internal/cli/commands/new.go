package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newNewCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "new [content...]",
		Short: "Create a note",
		Long:  "Create a note with the given content, from stdin with --stdin, or empty.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			content := strings.Join(args, " ")
			if fromStdin {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = string(raw)
			}

			id := uuid.NewString()
			a.reg.Create(id)
			if content != "" {
				if err := a.store.SetNote(ctx, id, content); err != nil {
					return fmt.Errorf("write note: %w", err)
				}
				if err := a.reg.Save(ctx, id, content); err != nil {
					return err
				}
				a.index.Update(id, content)
			}
			if err := a.sess.SetLastActiveID(id); err != nil {
				a.logger.Warnw("remember last note", "error", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), shortID(id))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the note content from stdin")
	return cmd
}
