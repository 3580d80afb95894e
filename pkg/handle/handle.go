// Package handle defines deformation handles: mesh vertices pinned by
// the user, each with the position it had when picked and the position
// it has been dragged to.
package handle

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrNoHandle is returned when an operation names a vertex without a handle.
var ErrNoHandle = errors.New("handle: no handle at vertex")

// Handle pins one indexed-mesh vertex. Original is fixed for the life of
// the handle; Updated follows the drag gizmo.
type Handle struct {
	VID      int        `json:"vid"`
	Original mgl64.Vec3 `json:"original"`
	Updated  mgl64.Vec3 `json:"updated"`
}

// Translation returns Updated - Original.
func (h Handle) Translation() mgl64.Vec3 {
	return h.Updated.Sub(h.Original)
}

// Transform returns the handle's motion as a homogeneous matrix.
// Handles only translate, so the linear part is the identity.
func (h Handle) Transform() mgl64.Mat4 {
	t := h.Translation()
	return mgl64.Translate3D(t.X(), t.Y(), t.Z())
}

// AffineRows returns the handle transform as four stacked rows of three:
// the 3x3 linear part row by row, then the translation.
func (h Handle) AffineRows() [12]float64 {
	m := h.Transform()
	var rows [12]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			rows[r*3+c] = m.At(r, c)
		}
	}
	rows[9], rows[10], rows[11] = m.At(0, 3), m.At(1, 3), m.At(2, 3)
	return rows
}

// Set holds at most one handle per vertex index and remembers insertion
// order so serialization is deterministic. A Set is not safe for
// concurrent use.
type Set struct {
	byVID map[int]*Handle
	order []int
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{byVID: make(map[int]*Handle)}
}

// Add creates a handle at vid with both positions at pos. If vid already
// has a handle it is returned unchanged and created is false.
func (s *Set) Add(vid int, pos mgl64.Vec3) (h *Handle, created bool) {
	if h, ok := s.byVID[vid]; ok {
		return h, false
	}
	h = &Handle{VID: vid, Original: pos, Updated: pos}
	s.byVID[vid] = h
	s.order = append(s.order, vid)
	return h, true
}

// Get returns the handle at vid, or nil.
func (s *Set) Get(vid int) *Handle {
	return s.byVID[vid]
}

// Has reports whether vid has a handle.
func (s *Set) Has(vid int) bool {
	_, ok := s.byVID[vid]
	return ok
}

// Move sets the updated position of the handle at vid.
func (s *Set) Move(vid int, pos mgl64.Vec3) error {
	h, ok := s.byVID[vid]
	if !ok {
		return errors.Wrapf(ErrNoHandle, "move %d", vid)
	}
	h.Updated = pos
	return nil
}

// Remove deletes the handle at vid and reports whether one existed.
func (s *Set) Remove(vid int) bool {
	if _, ok := s.byVID[vid]; !ok {
		return false
	}
	delete(s.byVID, vid)
	s.order = lo.Without(s.order, vid)
	return true
}

// Clear removes every handle and returns how many there were.
func (s *Set) Clear() int {
	n := len(s.order)
	s.byVID = make(map[int]*Handle)
	s.order = nil
	return n
}

// Len returns the number of handles.
func (s *Set) Len() int {
	return len(s.order)
}

// List returns copies of all handles in insertion order.
func (s *Set) List() []Handle {
	return lo.Map(s.order, func(vid int, _ int) Handle {
		return *s.byVID[vid]
	})
}
