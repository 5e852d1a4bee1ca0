package tui

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/dragdrop"
)

// Board geometry. Rows and columns are 0-based terminal cells.
const (
	boardTop       = 2 // header + spacer
	laneFrameWidth = 4 // rounded border (2) + horizontal padding (2)
	laneGap        = 1
	minLaneWidth   = 22
	maxLaneWidth   = 48
	minLaneHeight  = 8
	progressWidth  = 10
)

// laneFrame is the on-screen placement of one rendered lane.
type laneFrame struct {
	status domain.Status
	x      int
	y      int
	width  int
	height int
	cards  []cardFrame
}

// cardFrame is the on-screen placement of one visible card.
type cardFrame struct {
	id     int
	y      int
	height int
}

func (f laneFrame) contains(x, y int) bool {
	return x >= f.x && x < f.x+f.width && y >= f.y && y < f.y+f.height
}

func (f laneFrame) rect() dragdrop.Rect {
	return dragdrop.Rect{X: float64(f.x), Y: float64(f.y), W: float64(f.width), H: float64(f.height)}
}

// cardAt returns the card under row y.
func (f laneFrame) cardAt(y int) (cardFrame, bool) {
	for _, card := range f.cards {
		if y >= card.y && y < card.y+card.height {
			return card, true
		}
	}
	return cardFrame{}, false
}

// cardRect returns the drag rect for card, spanning the lane width.
func (f laneFrame) cardRect(card cardFrame) dragdrop.Rect {
	return dragdrop.Rect{X: float64(f.x), Y: float64(card.y), W: float64(f.width), H: float64(card.height)}
}

// laneWidth returns the outer lane width for the current terminal width.
func (m Model) laneWidth() int {
	if len(m.lanes) == 0 {
		return minLaneWidth
	}
	w := 34
	if m.width > 0 {
		w = (m.width - len(m.lanes)*laneGap) / len(m.lanes)
	}
	return clamp(w, minLaneWidth, maxLaneWidth)
}

// laneHeight returns the outer lane height.
func (m Model) laneHeight() int {
	footer := 3 + m.maxToasts // status line + bordered help line + toasts
	h := m.height - boardTop - footer
	if h < minLaneHeight {
		return minLaneHeight
	}
	return h
}

// laneFrames computes lane placement without styling.
func (m Model) laneFrames() []laneFrame {
	_, frames := m.renderLanes(lipgloss.Color("62"), lipgloss.Color("241"), lipgloss.Color("239"))
	return frames
}

// renderLanes renders every lane and returns the placement used for mouse hit testing.
func (m Model) renderLanes(accent, muted, dim color.Color) (string, []laneFrame) {
	width := m.laneWidth()
	height := m.laneHeight()
	innerHeight := max(1, height-2)
	contentWidth := max(1, width-laneFrameWidth)

	dropTarget, dropping := m.dragTarget()
	baseStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		MarginRight(laneGap).
		Width(width)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	views := make([]string, 0, len(m.lanes))
	frames := make([]laneFrame, 0, len(m.lanes))
	for laneIdx, status := range m.lanes {
		todos := m.state.TodosByStatus(status)
		headerLines := []string{titleStyle.Render(fmt.Sprintf("%s (%d)", status, len(todos))), ""}

		type span struct{ id, start, end int }
		var lines []string
		spans := make([]span, 0, len(todos))
		selectedStart, selectedEnd := -1, -1
		if len(todos) == 0 {
			lines = append(lines, emptyStyle.Render("(empty)"))
		}
		for cardIdx, todo := range todos {
			selected := laneIdx == m.selectedLane && cardIdx == m.selectedCard
			start := len(lines)
			lines = append(lines, m.cardLines(todo, selected, contentWidth, muted)...)
			spans = append(spans, span{id: todo.ID, start: start, end: len(lines)})
			if selected {
				selectedStart, selectedEnd = start, len(lines)-1
			}
			if cardIdx < len(todos)-1 {
				lines = append(lines, "")
			}
		}

		window := max(1, innerHeight-len(headerLines))
		scrollTop := 0
		if selectedStart >= 0 {
			if selectedEnd >= window {
				scrollTop = selectedEnd - window + 1
			}
			if selectedStart < scrollTop {
				scrollTop = selectedStart
			}
		}
		scrollTop = clamp(scrollTop, 0, max(0, len(lines)-window))
		if len(lines) > window {
			lines = lines[scrollTop : scrollTop+window]
		}

		x := laneIdx * (width + laneGap)
		frame := laneFrame{status: status, x: x, y: boardTop, width: width, height: height}
		contentTop := boardTop + 1 + len(headerLines)
		for _, s := range spans {
			top := max(s.start, scrollTop)
			bottom := min(s.end, scrollTop+window)
			if bottom <= top {
				continue
			}
			frame.cards = append(frame.cards, cardFrame{id: s.id, y: contentTop + top - scrollTop, height: bottom - top})
		}
		frames = append(frames, frame)

		style := baseStyle
		switch {
		case dropping && status == dropTarget:
			style = style.BorderForeground(lipgloss.Color("212"))
		case laneIdx == m.selectedLane:
			style = style.BorderForeground(accent)
		}
		content := fitLines(strings.Join(append(headerLines, lines...), "\n"), innerHeight)
		views = append(views, style.Render(content))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...), frames
}

// cardLines renders one card as a fixed list of lines.
func (m Model) cardLines(todo domain.Todo, selected bool, width int, muted color.Color) []string {
	subStyle := lipgloss.NewStyle().Foreground(muted)
	titleStyle := lipgloss.NewStyle()
	if selected {
		titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	}
	loading := m.state.Loading
	if loading.IsDeleting(todo.ID) {
		titleStyle = titleStyle.Strikethrough(true).Foreground(lipgloss.Color("243"))
	}

	prefix := "  "
	if selected {
		prefix = "│ "
	}
	textWidth := max(1, width-2)
	lines := []string{prefix + titleStyle.Render(truncate(todo.Title, textWidth))}

	status := progressBar(todo.Progress(), min(progressWidth, max(3, textWidth-5)))
	if marker := pendingMarker(loading.IsUpdating(todo.ID), loading.IsMoving(todo.ID), loading.IsDeleting(todo.ID)); marker != "" {
		status += " " + marker
	}
	lines = append(lines, prefix+subStyle.Render(truncate(status, textWidth)))

	if m.showDescription && !m.expanded[todo.ID] {
		if first, _, _ := strings.Cut(strings.TrimSpace(todo.Description), "\n"); first != "" && first != todo.Title {
			lines = append(lines, prefix+subStyle.Render(truncate(first, textWidth)))
		}
	}
	if !m.expanded[todo.ID] {
		return lines
	}

	if desc := strings.TrimSpace(todo.Description); desc != "" && desc != todo.Title {
		for line := range strings.SplitSeq(m.markdown.render(desc, textWidth), "\n") {
			lines = append(lines, prefix+ansi.Truncate(line, textWidth, ""))
		}
	}
	if len(todo.Items) == 0 {
		lines = append(lines, prefix+subStyle.Render("no checklist items"))
		return lines
	}
	for idx, item := range todo.Items {
		cursor := " "
		if selected && idx == m.itemCursor {
			cursor = "›"
		}
		mark := "[ ]"
		if item.Checked {
			mark = "[x]"
		}
		lines = append(lines, prefix+truncate(cursor+mark+" "+item.Content, textWidth))
	}
	return lines
}

// progressBar renders pct as a fixed-width bar followed by the percentage.
func progressBar(pct, width int) string {
	pct = clamp(pct, 0, 100)
	filled := pct * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %d%%", pct)
}

func pendingMarker(updating, moving, deleting bool) string {
	switch {
	case deleting:
		return "deleting…"
	case moving:
		return "moving…"
	case updating:
		return "saving…"
	default:
		return ""
	}
}
