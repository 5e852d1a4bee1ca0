package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"github.com/hylla/lanes/internal/domain"
)

// markdownRenderer renders todo descriptions for expanded cards.
// The glamour renderer is rebuilt only when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(12, width)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return trimBlankLines(rendered)
}

// trimBlankLines drops leading and trailing whitespace-only lines from glamour output.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(ansi.Strip(lines[start])) == "" {
		start++
	}
	for end > start && strings.TrimSpace(ansi.Strip(lines[end-1])) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// todoMarkdown formats a todo for the clipboard.
func todoMarkdown(todo domain.Todo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", strings.TrimSpace(todo.Title))
	fmt.Fprintf(&b, "Status: %s\n", todo.Status)
	if len(todo.Items) > 0 {
		fmt.Fprintf(&b, "Progress: %d%%\n", todo.Progress())
	}
	if desc := strings.TrimSpace(todo.Description); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}
	if len(todo.Items) > 0 {
		b.WriteString("\n")
		for _, item := range todo.Items {
			mark := " "
			if item.Checked {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, item.Content)
		}
	}
	return b.String()
}
