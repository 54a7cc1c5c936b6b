package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where notes live and whether sync is on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "data dir:  %s\n", a.cfg.DataDir)
			fmt.Fprintf(out, "notes:     %d\n", len(a.reg.Notes()))
			if a.sess.Synced() {
				fmt.Fprintf(out, "sync:      on (bucket %s, server %s)\n",
					shortID(a.sess.BucketID()), a.cfg.ServerURL)
			} else if a.sess.BucketID() != "" {
				fmt.Fprintf(out, "sync:      incomplete, run 'kite sync' to retry (bucket %s)\n",
					shortID(a.sess.BucketID()))
			} else {
				fmt.Fprintln(out, "sync:      off")
			}
			if last := a.sess.LastActiveID(); last != "" {
				fmt.Fprintf(out, "last note: %s\n", shortID(last))
			}
			return nil
		},
	}
}
