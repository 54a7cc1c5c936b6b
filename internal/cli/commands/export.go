package commands

import (
	"bytes"
	"fmt"
	"html"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a note as a standalone HTML page",
		Args:  cobra.ExactArgs(1),
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

			page, err := renderPage(note.Title, content)
			if err != nil {
				return fmt.Errorf("render note %s: %w", shortID(note.ID), err)
			}

			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), page)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(page), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", shortID(note.ID), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func renderPage(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &body); err != nil {
		return "", err
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body.String()), nil
}
