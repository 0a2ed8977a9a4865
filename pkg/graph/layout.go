package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// =============================================================================
// Layout - Persisted Group Layout
// =============================================================================

// Layout is the serialization format of a layout group's node positions.
//
// Version identifies the node set, edges and simulation options the
// positions were computed for. Stores compare versions, never positions.
// When Flipped is set the x axis has been mirrored for reverse-complement
// experiments.
type Layout struct {
	ID         string     `json:"id" bson:"id"`
	Group      string     `json:"group" bson:"group"`
	Version    string     `json:"version" bson:"version"`
	Positions  []Position `json:"positions" bson:"positions"`
	Converged  bool       `json:"converged" bson:"converged"`
	Iterations int        `json:"iterations" bson:"iterations"`
	Flipped    bool       `json:"flipped,omitempty" bson:"flipped,omitempty"`
	Seed       int64      `json:"seed" bson:"seed"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

// Position places one node, identified by its sequence.
type Position struct {
	ID string  `json:"id" bson:"id"`
	X  float64 `json:"x" bson:"x"`
	Y  float64 `json:"y" bson:"y"`
}

// Position returns the position of a node.
func (l *Layout) Position(id string) (Position, bool) {
	for _, p := range l.Positions {
		if p.ID == id {
			return p, true
		}
	}
	return Position{}, false
}

// PositionMap indexes positions by node ID.
func (l *Layout) PositionMap() map[string]Position {
	m := make(map[string]Position, len(l.Positions))
	for _, p := range l.Positions {
		m[p.ID] = p
	}
	return m
}

// Bounds returns the bounding box of all positions.
func (l *Layout) Bounds() (minX, minY, maxX, maxY float64) {
	for i, p := range l.Positions {
		if i == 0 {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			continue
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return
}

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	l.Positions = append([]Position(nil), l.Positions...)
	return l
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
// Validates that the group and version are present.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Group == "" {
		return Layout{}, fmt.Errorf("layout must name its group")
	}
	if l.Version == "" {
		return Layout{}, fmt.Errorf("layout %s must carry a version", l.Group)
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
