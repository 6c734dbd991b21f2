package golf

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNoHoles         = errors.New("course has no holes")
	ErrHoleNumbering   = errors.New("hole numbers must be contiguous starting at 1")
	ErrEmptyCourseName = errors.New("course name is required")
)

const (
	DefaultPar     = 4
	DefaultYardage = 400
)

// DefaultHoles returns n holes numbered 1..n at par 4, 400 yards.
func DefaultHoles(n int) []Hole {
	holes := make([]Hole, n)
	for i := range holes {
		holes[i] = Hole{HoleNumber: i + 1, Par: DefaultPar, Yardage: DefaultYardage}
	}
	return holes
}

// NewCourse validates the hole layout and assigns a fresh ID.
func NewCourse(name string, holes []Hole) (Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Course{}, ErrEmptyCourseName
	}
	if _, err := NewRegistry(holes); err != nil {
		return Course{}, err
	}
	return Course{ID: uuid.NewString(), Name: name, Holes: slices.Clone(holes)}, nil
}

// Registry is the ordered, immutable list of holes played in a round.
type Registry struct {
	holes []Hole
}

func NewRegistry(holes []Hole) (Registry, error) {
	if len(holes) == 0 {
		return Registry{}, ErrNoHoles
	}
	for i, hole := range holes {
		if hole.HoleNumber != i+1 {
			return Registry{}, fmt.Errorf("%w: position %d has hole %d", ErrHoleNumbering, i, hole.HoleNumber)
		}
	}

	registry := Registry{holes: make([]Hole, len(holes))}
	for i, hole := range holes {
		hole.Notes = slices.Clone(hole.Notes)
		registry.holes[i] = hole
	}
	return registry, nil
}

func (r Registry) Len() int { return len(r.holes) }

// Hole returns the hole at index i. The caller must keep i within [0, Len).
func (r Registry) Hole(i int) Hole {
	hole := r.holes[i]
	hole.Notes = slices.Clone(hole.Notes)
	return hole
}

// Contains reports whether holeNumber names a hole of this course.
func (r Registry) Contains(holeNumber int) bool {
	return holeNumber >= 1 && holeNumber <= len(r.holes)
}

// ValidIndex clamps i into the registry bounds.
func (r Registry) ValidIndex(i int) int {
	return max(0, min(i, len(r.holes)-1))
}
