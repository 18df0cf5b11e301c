package domain

import "math"

// Position represents x,y canvas coordinates of a neuron.
// It is presentation metadata; only AutoConnect reads it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NewPosition creates a position, returning nil when either coordinate is missing
func NewPosition(x, y *float64) *Position {
	if x == nil || y == nil {
		return nil
	}
	return &Position{X: *x, Y: *y}
}

// DistanceTo returns the Euclidean distance between two positions
func (p Position) DistanceTo(other Position) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}
