package tui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/dragdrop"
)

// dragState tracks a card held by the pointer.
type dragState struct {
	id     int
	title  string
	origin domain.Status
	card   dragdrop.Rect
	startX int
	startY int
	curX   int
	curY   int
}

// moved reports whether the pointer left its starting cell.
func (d dragState) moved() bool {
	return d.curX != d.startX || d.curY != d.startY
}

// rect returns the card rect translated by the pointer delta.
func (d dragState) rect() dragdrop.Rect {
	return d.card.Translate(float64(d.curX-d.startX), float64(d.curY-d.startY))
}

// dragTarget resolves the lane the held card would drop into.
func (m Model) dragTarget() (domain.Status, bool) {
	if m.drag == nil || !m.drag.moved() {
		return "", false
	}
	return m.resolver.Resolve(m.drag.rect(), m.laneRects, m.drag.origin)
}

// laneRectsFor converts frames to resolver input.
func laneRectsFor(frames []laneFrame) []dragdrop.LaneRect {
	out := make([]dragdrop.LaneRect, 0, len(frames))
	for _, f := range frames {
		out = append(out, dragdrop.LaneRect{Status: f.status, Rect: f.rect()})
	}
	return out
}

// handleMouseClick selects the lane and card under the pointer and picks the card up.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll || !m.loaded {
		return m, nil
	}
	if msg.Button != tea.MouseLeft {
		return m, nil
	}
	frames := m.laneFrames()
	m.laneRects = laneRectsFor(frames)
	for laneIdx, frame := range frames {
		if !frame.contains(msg.X, msg.Y) {
			continue
		}
		if laneIdx != m.selectedLane {
			m.itemCursor = 0
		}
		m.selectedLane = laneIdx
		card, ok := frame.cardAt(msg.Y)
		if !ok {
			m.clampSelections()
			return m, nil
		}
		todos := m.state.TodosByStatus(frame.status)
		for cardIdx, todo := range todos {
			if todo.ID != card.id {
				continue
			}
			if cardIdx != m.selectedCard {
				m.itemCursor = 0
			}
			m.selectedCard = cardIdx
			m.drag = &dragState{
				id:     todo.ID,
				title:  todo.Title,
				origin: todo.Status,
				card:   frame.cardRect(card),
				startX: msg.X,
				startY: msg.Y,
				curX:   msg.X,
				curY:   msg.Y,
			}
		}
		return m, nil
	}
	return m, nil
}

// handleMouseMotion follows the pointer while a card is held.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.drag == nil {
		return m, nil
	}
	drag := *m.drag
	drag.curX, drag.curY = msg.X, msg.Y
	m.drag = &drag
	return m, nil
}

// handleMouseRelease drops the held card and moves it when a lane qualifies.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.drag == nil {
		return m, nil
	}
	drag := *m.drag
	drag.curX, drag.curY = msg.X, msg.Y
	m.drag = &drag
	target, ok := m.dragTarget()
	m.drag = nil
	if !ok {
		return m, nil
	}
	if m.state.Loading.IsDeleting(drag.id) {
		return m, nil
	}
	m.focus = &focusTarget{id: drag.id, status: target}
	return m, m.moveTodo(drag.id, target)
}

// handleMouseWheel moves the card selection.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.moveCardSelection(-1)
	case tea.MouseWheelDown:
		m.moveCardSelection(1)
	}
	return m, nil
}
