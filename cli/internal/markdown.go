package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// renderMarkdown renders markdown with glamour when out is a terminal and
// returns it unchanged otherwise
func renderMarkdown(out io.Writer, markdown string, theme string) string {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return markdown
	}
	if theme == "" {
		theme = "auto"
	}

	rendered, err := glamour.Render(markdown, theme)
	if err != nil {
		// Fall back to plain markdown if rendering fails
		return markdown
	}
	return rendered
}

// printMarkdown renders and prints markdown using the given theme
func printMarkdown(out io.Writer, markdown, theme string) error {
	_, err := fmt.Fprint(out, renderMarkdown(out, markdown, theme))
	return err
}
