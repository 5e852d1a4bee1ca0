// Package dragdrop decides which lane a dragged card lands in.
package dragdrop

import "github.com/hylla/lanes/internal/domain"

// OverlapThreshold is the fraction of the card area that must overlap a lane.
const OverlapThreshold = 0.3

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Area returns the rectangle area, 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Translate returns r shifted by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Intersection returns the overlap area of r and other.
func (r Rect) Intersection(other Rect) float64 {
	w := min(r.Right(), other.Right()) - max(r.X, other.X)
	h := min(r.Bottom(), other.Bottom()) - max(r.Y, other.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// LaneRect is the on-screen bounds of one lane.
type LaneRect struct {
	Status domain.Status
	Rect   Rect
}

// Resolver picks drop targets using a configurable overlap threshold.
type Resolver struct {
	Threshold float64
}

// NewResolver returns a resolver, falling back to OverlapThreshold for values outside (0,1).
func NewResolver(threshold float64) Resolver {
	if threshold <= 0 || threshold >= 1 {
		threshold = OverlapThreshold
	}
	return Resolver{Threshold: threshold}
}

// Resolve returns the first lane other than current whose overlap with card
// exceeds the threshold share of the card area. ok is false when the card
// should return to its lane.
func (r Resolver) Resolve(card Rect, lanes []LaneRect, current domain.Status) (domain.Status, bool) {
	area := card.Area()
	if area == 0 {
		return "", false
	}
	threshold := r.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = OverlapThreshold
	}
	for _, lane := range lanes {
		if lane.Status == current {
			continue
		}
		if card.Intersection(lane.Rect)/area > threshold {
			return lane.Status, true
		}
	}
	return "", false
}
