package commands

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit a note in $EDITOR with live autosave",
		Long: "Opens the note in $EDITOR via a temp file. Every write in the editor " +
			"is picked up immediately and flows through the autosave pipeline, so " +
			"drafts and commits happen while you type, not only on exit.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			var id string
			switch {
			case len(args) == 1:
				note, err := a.resolveID(args[0])
				if err != nil {
					return err
				}
				id = note.ID
			case a.sess.LastActiveID() != "":
				id = a.sess.LastActiveID()
			default:
				return errors.New("no note id given and no recently used note")
			}

			content, err := a.bestContent(ctx, id)
			if err != nil {
				return fmt.Errorf("read note %s: %w", shortID(id), err)
			}
			// the committed copy seeds change detection; an untouched
			// editing session must not produce a commit
			committed, _, err := a.store.GetNote(ctx, id)
			if err != nil {
				return fmt.Errorf("read note %s: %w", shortID(id), err)
			}
			a.save.Track(id, committed)

			tmp := filepath.Join(os.TempDir(), "kite-"+shortID(id)+".md")
			if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
				return fmt.Errorf("prepare edit file: %w", err)
			}
			defer os.Remove(tmp)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("watch edit file: %w", err)
			}
			defer watcher.Close()
			// editors replace files via rename, so watch the directory
			// and filter by name
			if err := watcher.Add(filepath.Dir(tmp)); err != nil {
				return fmt.Errorf("watch edit file: %w", err)
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				for {
					select {
					case ev, ok := <-watcher.Events:
						if !ok {
							return
						}
						if ev.Name != tmp || !ev.Op.Has(fsnotify.Write|fsnotify.Create) {
							continue
						}
						if raw, err := os.ReadFile(tmp); err == nil {
							a.save.OnChange(id, string(raw))
						}
					case err, ok := <-watcher.Errors:
						if !ok {
							return
						}
						a.logger.Warnw("edit watcher", "error", err)
					}
				}
			}()

			if err := runEditor(tmp); err != nil {
				return err
			}
			watcher.Close()
			<-done

			if raw, err := os.ReadFile(tmp); err == nil {
				a.save.OnChange(id, string(raw))
			}
			a.save.Flush(id)

			if err := a.sess.SetLastActiveID(id); err != nil {
				a.logger.Warnw("remember last note", "error", err)
			}
			return nil
		},
	}
}

func runEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	parts = append(parts, path)

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run editor %q: %w", editor, err)
	}
	return nil
}
