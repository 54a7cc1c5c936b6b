// Package markdown derives display metadata (title, preview) from raw
// note content. Titles and previews are never edited directly; they are
// always recomputed from the content, on the client for optimistic
// updates and on the server for the authoritative copy.
package markdown

import (
	"regexp"
	"strings"
)

const (
	// TitleMaxLen is the rune limit for derived titles.
	TitleMaxLen = 20
	// PreviewMaxLen is the rune limit for derived previews.
	PreviewMaxLen = 60

	// DefaultTitle is used when content yields no usable first line.
	DefaultTitle = "Untitled"
)

var (
	headingRe  = regexp.MustCompile(`^#+\s*`)
	imageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	checkboxRe = regexp.MustCompile(`\[[ xX]\]`)
	syntaxRe   = regexp.MustCompile("[#*_~`>+\\-]")
	newlinesRe = regexp.MustCompile(`\n+`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

// DeriveTitle extracts a title from note content: the first line with
// leading markdown heading markers stripped, trimmed, truncated to
// TitleMaxLen runes. Empty content yields DefaultTitle.
func DeriveTitle(content string) string {
	firstLine, _, _ := strings.Cut(content, "\n")
	stripped := strings.TrimSpace(headingRe.ReplaceAllString(firstLine, ""))
	if stripped == "" {
		stripped = DefaultTitle
	}
	return truncateRunes(stripped, TitleMaxLen)
}

// PreviewContent extracts clean preview text from markdown content:
// images removed, links reduced to their text, task checkboxes and
// markdown syntax stripped, whitespace collapsed, truncated to
// PreviewMaxLen runes.
func PreviewContent(content string) string {
	s := imageRe.ReplaceAllString(content, "")
	s = linkRe.ReplaceAllString(s, "$1")
	s = checkboxRe.ReplaceAllString(s, "")
	s = syntaxRe.ReplaceAllString(s, "")
	s = newlinesRe.ReplaceAllString(s, " ")
	s = spacesRe.ReplaceAllString(s, " ")
	return truncateRunes(strings.TrimSpace(s), PreviewMaxLen)
}

// FirstLine returns the preview form of just the first line of content.
func FirstLine(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	return PreviewContent(line)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
