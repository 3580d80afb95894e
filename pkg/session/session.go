// Package session owns the interaction state of one viewer: the loaded
// mesh, its handles, the current selection and the deformed positions.
// Every mesh load starts a new generation and every load or undeform
// starts a new deform epoch; deformation responses issued against an
// older generation or epoch are discarded.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chazu/deform/pkg/deform"
	"github.com/chazu/deform/pkg/handle"
	"github.com/chazu/deform/pkg/locate"
	"github.com/chazu/deform/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultDeformTimeout bounds a single deformation round trip.
const DefaultDeformTimeout = 30 * time.Second

var (
	// ErrNoMesh is returned by operations that need a loaded mesh.
	ErrNoMesh = errors.New("session: no mesh loaded")
	// ErrNoSelection is returned when no handle is selected.
	ErrNoSelection = errors.New("session: no handle selected")
	// ErrNoDeformer is returned by Deform when the session has no solver.
	ErrNoDeformer = errors.New("session: no deformer configured")
	// ErrStale is returned when the mesh was reloaded while a
	// deformation request was in flight.
	ErrStale = errors.New("session: deformation result is stale")
	// ErrVertexRange is returned for a vertex index outside the mesh.
	ErrVertexRange = errors.New("session: vertex index out of range")
)

// Option configures a Session.
type Option func(*Session)

// WithDeformer sets the solver used by Deform.
func WithDeformer(d deform.Deformer) Option {
	return func(s *Session) { s.deformer = d }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithDeformTimeout overrides DefaultDeformTimeout.
func WithDeformTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// Session is safe for concurrent use.
type Session struct {
	id       uuid.UUID
	deformer deform.Deformer
	log      *slog.Logger
	timeout  time.Duration

	mu         sync.Mutex
	generation uint64
	epoch      uint64
	mesh       *mesh.Indexed
	locator    *locate.Locator
	handles    *handle.Set
	selected   int
	deformed   []float64
}

// New creates an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		id:       uuid.New(),
		log:      slog.Default(),
		timeout:  DefaultDeformTimeout,
		handles:  handle.NewSet(),
		selected: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id.String())
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Generation returns the current mesh generation. It starts at 0 and
// increases by one on every successful Load.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Load replaces the current mesh with the deduplicated form of soup.
// All handles and the selection are dropped since their vertex indices
// no longer mean anything.
func (s *Session) Load(soup mesh.Soup) (*mesh.Indexed, error) {
	m, err := mesh.Deduplicate(soup)
	if err != nil {
		return nil, errors.Wrap(err, "session: load")
	}
	loc := locate.New(m)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.epoch++
	s.mesh = m
	s.locator = loc
	dropped := s.handles.Clear()
	s.selected = -1
	s.deformed = nil

	s.log.Info("mesh loaded",
		"generation", s.generation,
		"faces", m.FaceCount(),
		"vertices", m.VertexCount(),
		"dropped_handles", dropped)
	return m.Clone(), nil
}

// Mesh returns a copy of the current indexed mesh, or nil.
func (s *Session) Mesh() *mesh.Indexed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh == nil {
		return nil
	}
	return s.mesh.Clone()
}

// Pick snaps point to the nearest mesh vertex, creates a handle there if
// none exists, and selects it.
func (s *Session) Pick(point mgl64.Vec3) (handle.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh == nil {
		return handle.Handle{}, ErrNoMesh
	}
	vid, dist, ok := s.locator.Nearest(point)
	if !ok {
		return handle.Handle{}, ErrNoMesh
	}
	h, created := s.handles.Add(vid, s.mesh.Vertex(vid))
	s.selected = vid
	s.log.Debug("pick", "vid", vid, "distance", dist, "created", created)
	return *h, nil
}

// AddHandle creates a handle at vid if absent and selects it.
func (s *Session) AddHandle(vid int) (handle.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVertex(vid); err != nil {
		return handle.Handle{}, err
	}
	h, created := s.handles.Add(vid, s.mesh.Vertex(vid))
	s.selected = vid
	s.log.Debug("add handle", "vid", vid, "created", created)
	return *h, nil
}

func (s *Session) checkVertex(vid int) error {
	if s.mesh == nil {
		return ErrNoMesh
	}
	if vid < 0 || vid >= s.mesh.VertexCount() {
		return errors.Wrapf(ErrVertexRange, "vid %d, vertex count %d", vid, s.mesh.VertexCount())
	}
	return nil
}

// Select makes the handle at vid the selected one.
func (s *Session) Select(vid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.handles.Has(vid) {
		return errors.Wrapf(handle.ErrNoHandle, "select %d", vid)
	}
	s.selected = vid
	return nil
}

// Selected returns the selected handle.
func (s *Session) Selected() (handle.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected < 0 {
		return handle.Handle{}, false
	}
	return *s.handles.Get(s.selected), true
}

// Move sets the updated position of the handle at vid.
func (s *Session) Move(vid int, pos mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles.Move(vid, pos)
}

// Nudge offsets the updated position of the handle at vid by delta.
func (s *Session) Nudge(vid int, delta mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handles.Get(vid)
	if h == nil {
		return errors.Wrapf(handle.ErrNoHandle, "nudge %d", vid)
	}
	h.Updated = h.Updated.Add(delta)
	return nil
}

// MoveSelected sets the updated position of the selected handle.
func (s *Session) MoveSelected(pos mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected < 0 {
		return ErrNoSelection
	}
	return s.handles.Move(s.selected, pos)
}

// NudgeSelected offsets the updated position of the selected handle.
func (s *Session) NudgeSelected(delta mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected < 0 {
		return ErrNoSelection
	}
	h := s.handles.Get(s.selected)
	h.Updated = h.Updated.Add(delta)
	return nil
}

// Remove deletes the handle at vid, clearing the selection if it was
// selected. It reports whether a handle existed.
func (s *Session) Remove(vid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(vid)
}

func (s *Session) remove(vid int) bool {
	if !s.handles.Remove(vid) {
		return false
	}
	if s.selected == vid {
		s.selected = -1
	}
	return true
}

// DeleteSelected removes the selected handle. It reports whether one
// was selected.
func (s *Session) DeleteSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected < 0 {
		return false
	}
	return s.remove(s.selected)
}

// DeleteAll removes every handle and returns how many were removed.
func (s *Session) DeleteAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = -1
	return s.handles.Clear()
}

// Handles returns the handles in creation order.
func (s *Session) Handles() []handle.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles.List()
}

// Request snapshots the current mesh and handles as a deformation
// request, along with the generation it belongs to.
func (s *Session) Request() (*deform.Request, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh == nil {
		return nil, 0, ErrNoMesh
	}
	return deform.NewRequest(s.mesh, s.handles.List()), s.generation, nil
}

// Deform sends the current mesh and handles to the deformer and returns
// the deformed triangle soup. The lock is not held while the deformer
// runs; if the mesh is reloaded or undeformed meanwhile the result is
// dropped with ErrStale.
func (s *Session) Deform(ctx context.Context, model deform.Model) (mesh.Soup, error) {
	if s.deformer == nil {
		return nil, ErrNoDeformer
	}
	s.mu.Lock()
	if s.mesh == nil {
		s.mu.Unlock()
		return nil, ErrNoMesh
	}
	req := deform.NewRequest(s.mesh, s.handles.List())
	gen, epoch := s.generation, s.epoch
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.deformer.Deform(ctx, model, req)
	if err != nil {
		s.log.Warn("deform failed", "model", model.String(), "generation", gen, "err", err)
		return nil, errors.Wrapf(err, "session: deform %s", model)
	}
	if err := resp.Validate(req); err != nil {
		return nil, err
	}
	soup, err := mesh.Duplicate(resp.Vertices, req.Faces)
	if err != nil {
		return nil, errors.Wrap(err, "session: deform response")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.log.Info("discarding stale deformation", "model", model.String(), "issued", gen, "current", s.generation)
		return nil, errors.Wrapf(ErrStale, "issued at generation %d, now %d", gen, s.generation)
	}
	if epoch != s.epoch {
		s.log.Info("discarding deformation after undeform", "model", model.String(), "issued", epoch, "current", s.epoch)
		return nil, errors.Wrapf(ErrStale, "issued at deform epoch %d, now %d", epoch, s.epoch)
	}
	s.deformed = append([]float64(nil), resp.Vertices...)
	s.log.Info("deformed",
		"model", model.String(),
		"handles", len(req.Handles),
		"elapsed", time.Since(start))
	return soup, nil
}

// Deformed returns the triangle soup of the last accepted deformation,
// or of the undeformed mesh if there is none.
func (s *Session) Deformed() (mesh.Soup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh == nil {
		return nil, ErrNoMesh
	}
	if s.deformed == nil {
		return s.mesh.Soup()
	}
	return mesh.Duplicate(s.deformed, s.mesh.Faces)
}

// Undeform discards the last deformation and returns the soup of the
// loaded mesh. Handles are kept. Deformations still in flight are
// dropped when they return.
func (s *Session) Undeform() (mesh.Soup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh == nil {
		return nil, ErrNoMesh
	}
	s.deformed = nil
	s.epoch++
	return s.mesh.Soup()
}
