package course

import (
	"errors"
	"fmt"

	"github.com/puttworks/putt-server-go/internal/game/physics"
)

// HazardKind names a hazard surface type.
type HazardKind string

const (
	HazardWater HazardKind = "water"
	HazardSand  HazardKind = "sand"
)

// Box is an axis-aligned volume used for walls, hazards and bounds.
type Box struct {
	Min physics.Vec3 `json:"min" yaml:"min"`
	Max physics.Vec3 `json:"max" yaml:"max"`
}

// Contains reports whether p lies inside the box, ignoring height.
func (b Box) Contains(p physics.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Hazard is a zone that penalizes or slows the ball.
type Hazard struct {
	Kind HazardKind `json:"kind" yaml:"kind"`
	Zone Box        `json:"zone" yaml:"zone"`
}

// Hole describes one course element. Immutable once loaded; completion is
// tracked externally by the progression controller.
type Hole struct {
	Index        int          `json:"index" yaml:"index"`
	Name         string       `json:"name" yaml:"name"`
	Par          int          `json:"par" yaml:"par"`
	Start        physics.Vec3 `json:"start" yaml:"start"`
	Cup          physics.Vec3 `json:"cup" yaml:"cup"`
	CupRadius    float64      `json:"cupRadius" yaml:"cup_radius"`
	SurfaceLevel float64      `json:"surfaceLevel" yaml:"surface_level"`
	Bounds       Box          `json:"bounds" yaml:"bounds"`
	Walls        []Box        `json:"walls" yaml:"walls"`
	Hazards      []Hazard     `json:"hazards" yaml:"hazards"`
}

// Course is an ordered sequence of holes.
type Course struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Holes []Hole `json:"holes" yaml:"holes"`
}

// TotalPar sums par over all holes.
func (c *Course) TotalPar() int {
	total := 0
	for _, h := range c.Holes {
		total += h.Par
	}
	return total
}

var errNoHoles = errors.New("course has no holes")

// ValidationError reports which field of which hole failed validation.
type ValidationError struct {
	Course string
	Hole   int // -1 for course-level failures
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Hole < 0 {
		return fmt.Sprintf("course %q: %s: %s", e.Course, e.Field, e.Reason)
	}
	return fmt.Sprintf("course %q hole %d: %s: %s", e.Course, e.Hole, e.Field, e.Reason)
}

// Validate checks the course invariants before play.
func (c *Course) Validate() error {
	if c.ID == "" {
		return &ValidationError{Course: c.Name, Hole: -1, Field: "id", Reason: "missing"}
	}
	if len(c.Holes) == 0 {
		return fmt.Errorf("course %q: %w", c.ID, errNoHoles)
	}
	for i, h := range c.Holes {
		if h.Index != i {
			return &ValidationError{Course: c.ID, Hole: i, Field: "index",
				Reason: fmt.Sprintf("is %d, holes must be numbered in order", h.Index)}
		}
		if h.Par < 1 {
			return &ValidationError{Course: c.ID, Hole: i, Field: "par", Reason: "must be at least 1"}
		}
		if h.CupRadius <= 0 {
			return &ValidationError{Course: c.ID, Hole: i, Field: "cup_radius", Reason: "must be positive"}
		}
		if !h.Bounds.Contains(h.Cup) {
			return &ValidationError{Course: c.ID, Hole: i, Field: "cup", Reason: "outside bounds"}
		}
		if !h.Bounds.Contains(h.Start) {
			return &ValidationError{Course: c.ID, Hole: i, Field: "start", Reason: "outside bounds"}
		}
	}
	return nil
}
