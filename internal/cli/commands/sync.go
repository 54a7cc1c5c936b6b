package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a seam so tests do not need a TTY.
var readPassword = func(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}

func newSyncCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync notes with the remote store",
		Long: "On the first run a passphrase is asked for; it determines the bucket " +
			"your notes live in on the server, so use the same passphrase on every " +
			"device. Later runs reuse the stored bucket.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if passphrase == "" && a.sess.BucketID() != "" {
				report, err := a.syncer.Resync(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "synced: %d pushed, %d pulled, %d conflicts resolved\n",
					report.Pushed, report.Pulled, report.Conflicts)
				return nil
			}

			if passphrase == "" {
				fmt.Fprint(out, "passphrase: ")
				raw, err := readPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(out)
				if err != nil {
					return fmt.Errorf("read passphrase: %w", err)
				}
				passphrase = string(raw)
			}

			report, err := a.syncer.EnableSync(ctx, passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "sync enabled: %d pushed, %d pulled, %d conflicts resolved\n",
				report.Pushed, report.Pulled, report.Conflicts)
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "sync passphrase (prompted for when omitted)")
	return cmd
}
