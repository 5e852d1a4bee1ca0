package tui

import (
	"time"

	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/dragdrop"
)

// Default toast settings.
const (
	DefaultToastDisplay = 3 * time.Second
	DefaultMaxToasts    = 3
	toastStagger        = time.Second
)

type Option func(*Model)

// WithLanes sets the lane order. Unknown or duplicate statuses are skipped.
func WithLanes(lanes []domain.Status) Option {
	return func(m *Model) {
		out := make([]domain.Status, 0, len(lanes))
		seen := map[domain.Status]bool{}
		for _, lane := range lanes {
			if !lane.Valid() || seen[lane] {
				continue
			}
			seen[lane] = true
			out = append(out, lane)
		}
		if len(out) > 0 {
			m.lanes = out
		}
	}
}

func WithDropThreshold(threshold float64) Option {
	return func(m *Model) {
		m.resolver = dragdrop.NewResolver(threshold)
	}
}

// WithShowDescription shows the first description line on collapsed cards.
func WithShowDescription(show bool) Option {
	return func(m *Model) {
		m.showDescription = show
	}
}

// WithToasts sets how long toasts stay up and how many stack at once.
func WithToasts(display time.Duration, maxToasts int) Option {
	return func(m *Model) {
		if display > 0 {
			m.toastDisplay = display
		}
		if maxToasts > 0 {
			m.maxToasts = maxToasts
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}
