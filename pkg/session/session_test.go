package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chazu/deform/pkg/deform"
	"github.com/chazu/deform/pkg/handle"
	"github.com/chazu/deform/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// twoTriangles is a unit square split along the (1,0,0)-(0,1,0) diagonal.
var twoTriangles = mesh.Soup{
	0, 0, 0, 1, 0, 0, 0, 1, 0,
	1, 0, 0, 1, 1, 0, 0, 1, 0,
}

// shiftAll moves every vertex by the translation of the first handle.
func shiftAll(ctx context.Context, model deform.Model, req *deform.Request) (*deform.Response, error) {
	var t mgl64.Vec3
	if len(req.Handles) > 0 {
		t = req.Handles[0].Translation()
	}
	out := make([]float64, len(req.Vertices))
	for i := range out {
		out[i] = req.Vertices[i] + t[i%3]
	}
	return &deform.Response{Vertices: out}, nil
}

func newLoaded(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := New(append([]Option{WithLogger(quiet)}, opts...)...)
	_, err := s.Load(twoTriangles)
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	s := New(WithLogger(quiet))
	assert.Equal(t, uint64(0), s.Generation())
	assert.Nil(t, s.Mesh())

	m, err := s.Load(twoTriangles)
	require.NoError(t, err)
	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, []int{0, 1, 2, 1, 3, 2}, m.Faces)
	assert.Equal(t, uint64(1), s.Generation())

	_, err = s.Load(make(mesh.Soup, 10))
	var invalid *mesh.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, uint64(1), s.Generation(), "failed load must not bump the generation")
}

func TestLoadClearsHandles(t *testing.T) {
	s := newLoaded(t)
	_, err := s.Pick(mgl64.Vec3{1, 1, 0.1})
	require.NoError(t, err)
	require.Len(t, s.Handles(), 1)

	_, err = s.Load(twoTriangles)
	require.NoError(t, err)
	assert.Empty(t, s.Handles())
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestPickSnapsAndSelects(t *testing.T) {
	s := newLoaded(t)

	h, err := s.Pick(mgl64.Vec3{0.9, 0.95, 0.2})
	require.NoError(t, err)
	assert.Equal(t, 3, h.VID)
	assert.Equal(t, mgl64.Vec3{1, 1, 0}, h.Original)
	assert.Equal(t, h.Original, h.Updated)

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, 3, sel.VID)

	// A second pick of the same vertex keeps the dragged position.
	require.NoError(t, s.MoveSelected(mgl64.Vec3{1, 1, 2}))
	h, err = s.Pick(mgl64.Vec3{1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 1, 2}, h.Updated)
	assert.Len(t, s.Handles(), 1)
}

func TestPickWithoutMesh(t *testing.T) {
	s := New(WithLogger(quiet))
	_, err := s.Pick(mgl64.Vec3{})
	assert.ErrorIs(t, err, ErrNoMesh)
	_, _, err = s.Request()
	assert.ErrorIs(t, err, ErrNoMesh)
	_, err = s.Undeform()
	assert.ErrorIs(t, err, ErrNoMesh)
}

func TestAddHandleRange(t *testing.T) {
	s := newLoaded(t)
	_, err := s.AddHandle(4)
	assert.ErrorIs(t, err, ErrVertexRange)
	_, err = s.AddHandle(-1)
	assert.ErrorIs(t, err, ErrVertexRange)

	h, err := s.AddHandle(2)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, h.Original)
}

func TestDeleteSelectedAndAll(t *testing.T) {
	s := newLoaded(t)
	assert.False(t, s.DeleteSelected())
	assert.ErrorIs(t, s.MoveSelected(mgl64.Vec3{}), ErrNoSelection)

	for _, vid := range []int{0, 1, 2} {
		_, err := s.AddHandle(vid)
		require.NoError(t, err)
	}
	require.NoError(t, s.Select(1))
	assert.True(t, s.DeleteSelected())
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Len(t, s.Handles(), 2)

	assert.ErrorIs(t, s.Select(1), handle.ErrNoHandle)
	assert.Equal(t, 2, s.DeleteAll())
	assert.Empty(t, s.Handles())
}

func TestRequestSnapshot(t *testing.T) {
	s := newLoaded(t)
	_, err := s.AddHandle(3)
	require.NoError(t, err)
	require.NoError(t, s.Move(3, mgl64.Vec3{1, 1, 1}))

	req, gen, err := s.Request()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	require.Len(t, req.Handles, 1)
	assert.Equal(t, handle.Handle{VID: 3, Original: mgl64.Vec3{1, 1, 0}, Updated: mgl64.Vec3{1, 1, 1}}, req.Handles[0])

	require.NoError(t, s.Move(3, mgl64.Vec3{5, 5, 5}))
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, req.Handles[0].Updated)
}

func TestDeform(t *testing.T) {
	s := newLoaded(t, WithDeformer(deform.DeformerFunc(shiftAll)))
	_, err := s.AddHandle(0)
	require.NoError(t, err)
	require.NoError(t, s.Move(0, mgl64.Vec3{0, 0, 1}))

	soup, err := s.Deform(context.Background(), deform.Linear)
	require.NoError(t, err)
	require.Len(t, soup, 18)
	for i := 2; i < len(soup); i += 3 {
		assert.Equal(t, 1.0, soup[i], "z of value %d", i)
	}

	current, err := s.Deformed()
	require.NoError(t, err)
	assert.Equal(t, soup, current)

	undeformed, err := s.Undeform()
	require.NoError(t, err)
	assert.Equal(t, twoTriangles, undeformed)
	current, err = s.Deformed()
	require.NoError(t, err)
	assert.Equal(t, twoTriangles, current)
	assert.Len(t, s.Handles(), 1, "undeform keeps handles")
}

func TestDeformErrors(t *testing.T) {
	t.Run("no deformer", func(t *testing.T) {
		s := newLoaded(t)
		_, err := s.Deform(context.Background(), deform.Linear)
		assert.ErrorIs(t, err, ErrNoDeformer)
	})
	t.Run("solver failure", func(t *testing.T) {
		boom := errors.New("boom")
		s := newLoaded(t, WithDeformer(deform.DeformerFunc(
			func(context.Context, deform.Model, *deform.Request) (*deform.Response, error) {
				return nil, boom
			})))
		_, err := s.Deform(context.Background(), deform.BBW)
		assert.ErrorIs(t, err, boom)
	})
	t.Run("short response", func(t *testing.T) {
		s := newLoaded(t, WithDeformer(deform.DeformerFunc(
			func(context.Context, deform.Model, *deform.Request) (*deform.Response, error) {
				return &deform.Response{Vertices: []float64{1, 2, 3}}, nil
			})))
		_, err := s.Deform(context.Background(), deform.Linear)
		assert.ErrorIs(t, err, deform.ErrVertexCountMismatch)
	})
	t.Run("timeout", func(t *testing.T) {
		s := newLoaded(t,
			WithDeformTimeout(10*time.Millisecond),
			WithDeformer(deform.DeformerFunc(
				func(ctx context.Context, _ deform.Model, _ *deform.Request) (*deform.Response, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				})))
		_, err := s.Deform(context.Background(), deform.Linear)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestDeformDiscardsStale(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newLoaded(t, WithDeformer(deform.DeformerFunc(
		func(ctx context.Context, m deform.Model, req *deform.Request) (*deform.Response, error) {
			close(started)
			<-release
			return shiftAll(ctx, m, req)
		})))

	var wg sync.WaitGroup
	var deformErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, deformErr = s.Deform(context.Background(), deform.BBW)
	}()

	<-started
	_, err := s.Load(twoTriangles)
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, deformErr, ErrStale)
	current, err := s.Deformed()
	require.NoError(t, err)
	assert.Equal(t, twoTriangles, current, "stale positions must not be applied")
}

func TestUndeformDiscardsInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newLoaded(t, WithDeformer(deform.DeformerFunc(
		func(ctx context.Context, m deform.Model, req *deform.Request) (*deform.Response, error) {
			close(started)
			<-release
			return shiftAll(ctx, m, req)
		})))
	_, err := s.AddHandle(0)
	require.NoError(t, err)
	require.NoError(t, s.Move(0, mgl64.Vec3{5, 5, 5}))

	var wg sync.WaitGroup
	var deformErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, deformErr = s.Deform(context.Background(), deform.Linear)
	}()

	<-started
	undeformed, err := s.Undeform()
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, deformErr, ErrStale)
	current, err := s.Deformed()
	require.NoError(t, err)
	assert.Equal(t, undeformed, current, "undeform must win over a late response")
	assert.Equal(t, uint64(1), s.Generation(), "undeform keeps the mesh generation")
}

func TestDeformCopiesResponse(t *testing.T) {
	var returned []float64
	s := newLoaded(t, WithDeformer(deform.DeformerFunc(
		func(ctx context.Context, m deform.Model, req *deform.Request) (*deform.Response, error) {
			resp, err := shiftAll(ctx, m, req)
			returned = resp.Vertices
			return resp, err
		})))

	soup, err := s.Deform(context.Background(), deform.Linear)
	require.NoError(t, err)
	for i := range returned {
		returned[i] = 99
	}

	current, err := s.Deformed()
	require.NoError(t, err)
	assert.Equal(t, soup, current)
}

func TestSelectionEdits(t *testing.T) {
	s := newLoaded(t)
	err := s.Apply([]Edit{
		{Kind: EditPick, Point: mgl64.Vec3{0.9, 0.9, 0}},
		{Kind: EditMoveSelected, Point: mgl64.Vec3{1, 1, 1}},
		{Kind: EditNudgeSelected, Point: mgl64.Vec3{0, 0, 1}},
		{Kind: EditPick, Point: mgl64.Vec3{0, 0, 0}},
		{Kind: EditDropSelected},
	})
	require.NoError(t, err)

	hs := s.Handles()
	require.Len(t, hs, 1)
	assert.Equal(t, 3, hs[0].VID)
	assert.Equal(t, mgl64.Vec3{1, 1, 2}, hs[0].Updated)

	_, ok := s.Selected()
	assert.False(t, ok)
	err = s.Apply([]Edit{{Kind: EditNudgeSelected, Point: mgl64.Vec3{1, 0, 0}}})
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.NoError(t, s.Apply([]Edit{{Kind: EditDropSelected}}))
}

func TestApply(t *testing.T) {
	s := newLoaded(t)
	err := s.Apply([]Edit{
		{Kind: EditPick, Point: mgl64.Vec3{0.1, 0.1, 0}},
		{Kind: EditHandle, VID: 3},
		{Kind: EditMove, VID: 3, Point: mgl64.Vec3{1, 1, 1}},
		{Kind: EditNudge, VID: 3, Point: mgl64.Vec3{0, 0, 0.5}},
		{Kind: EditHandle, VID: 1},
		{Kind: EditDrop, VID: 1},
		{Kind: EditDrop, VID: 2},
	})
	require.NoError(t, err)

	hs := s.Handles()
	require.Len(t, hs, 2)
	assert.Equal(t, 0, hs[0].VID)
	assert.Equal(t, mgl64.Vec3{1, 1, 1.5}, hs[1].Updated)

	err = s.Apply([]Edit{{Kind: EditMove, VID: 2, Point: mgl64.Vec3{}}})
	assert.ErrorIs(t, err, handle.ErrNoHandle)

	require.NoError(t, s.Apply([]Edit{{Kind: EditClear}}))
	assert.Empty(t, s.Handles())
}

func TestEditString(t *testing.T) {
	assert.Equal(t, "(drop 4)", Edit{Kind: EditDrop, VID: 4}.String())
	assert.Equal(t, "(clear)", Edit{Kind: EditClear}.String())
	assert.Equal(t, "(nudge-selected [0 0 1])", Edit{Kind: EditNudgeSelected, Point: mgl64.Vec3{0, 0, 1}}.String())
	assert.Equal(t, "unknown", EditKind(42).String())
}

func TestConcurrentEdits(t *testing.T) {
	s := newLoaded(t, WithDeformer(deform.DeformerFunc(shiftAll)))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vid := i % 4
			if _, err := s.AddHandle(vid); err != nil {
				t.Error(err)
				return
			}
			_ = s.Move(vid, mgl64.Vec3{float64(i), 0, 0})
			_, _ = s.Deform(context.Background(), deform.Linear)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Handles(), 4)
}
