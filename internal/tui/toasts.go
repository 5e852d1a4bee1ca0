package tui

import (
	"image/color"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/lanes/internal/domain"
)

// toast is one entry in the message stack.
type toast struct {
	id      int
	message domain.Message
}

// toastExpiredMsg removes the toast with id.
type toastExpiredMsg struct {
	id int
}

// pushToast appends msg, drops the oldest entries past maxToasts, and
// schedules expiry at display + index*1s, where index is the toast's slot.
func (m *Model) pushToast(msg domain.Message) tea.Cmd {
	m.nextToastID++
	id := m.nextToastID
	m.toasts = append(m.toasts, toast{id: id, message: msg})
	if over := len(m.toasts) - m.maxToasts; over > 0 {
		m.toasts = append([]toast(nil), m.toasts[over:]...)
	}
	index := len(m.toasts) - 1
	ttl := m.toastDisplay + time.Duration(index)*toastStagger
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m *Model) dropToast(id int) {
	for idx, t := range m.toasts {
		if t.id == id {
			m.toasts = append(m.toasts[:idx:idx], m.toasts[idx+1:]...)
			return
		}
	}
}

// renderToasts renders the stack newest last, one line per toast.
func (m Model) renderToasts(width int) string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		style := lipgloss.NewStyle().Bold(true).Foreground(toastColor(t.message.Type))
		text := toastIcon(t.message.Type) + " " + strings.TrimSpace(t.message.Text)
		lines = append(lines, style.Render(truncate(text, max(1, width))))
	}
	return strings.Join(lines, "\n")
}

func toastColor(kind domain.MessageType) color.Color {
	switch kind {
	case domain.MessageError:
		return lipgloss.Color("203")
	case domain.MessageWarning:
		return lipgloss.Color("214")
	default:
		return lipgloss.Color("42")
	}
}

func toastIcon(kind domain.MessageType) string {
	switch kind {
	case domain.MessageError:
		return "✗"
	case domain.MessageWarning:
		return "!"
	default:
		return "✓"
	}
}
