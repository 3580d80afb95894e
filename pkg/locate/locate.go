// Package locate answers nearest-vertex queries against an indexed mesh.
// A surface pick is snapped to the closest mesh vertex before a handle
// is attached to it.
package locate

import (
	"math"
	"sort"

	"github.com/chazu/deform/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// vertexPoint is a mesh vertex stored in the k-d tree. Query points use
// id -1.
type vertexPoint struct {
	id int
	p  r3.Vec
}

func (v vertexPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.p.X
	case 1:
		return v.p.Y
	}
	return v.p.Z
}

func (v vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return v.coord(d) - c.(vertexPoint).coord(d)
}

func (v vertexPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (v vertexPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(v.p, c.(vertexPoint).p))
}

type vertexPoints []vertexPoint

func (p vertexPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p vertexPoints) Len() int                      { return len(p) }
func (p vertexPoints) Pivot(d kdtree.Dim) int {
	return vertexPlane{vertexPoints: p, Dim: d}.Pivot()
}
func (p vertexPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// vertexPlane orders points along one axis for median partitioning.
type vertexPlane struct {
	kdtree.Dim
	vertexPoints
}

func (p vertexPlane) Less(i, j int) bool {
	return p.vertexPoints[i].coord(p.Dim) < p.vertexPoints[j].coord(p.Dim)
}
func (p vertexPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	p.vertexPoints = p.vertexPoints[start:end]
	return p
}
func (p vertexPlane) Swap(i, j int) {
	p.vertexPoints[i], p.vertexPoints[j] = p.vertexPoints[j], p.vertexPoints[i]
}

var _ sort.Interface = vertexPlane{}

// Locator finds the mesh vertex closest to a point.
type Locator struct {
	tree *kdtree.Tree
	n    int
}

// New builds a locator over the vertices of m. The mesh is not retained.
func New(m *mesh.Indexed) *Locator {
	n := m.VertexCount()
	if n == 0 {
		return &Locator{}
	}
	pts := make(vertexPoints, n)
	for i := range pts {
		v := m.Vertex(i)
		pts[i] = vertexPoint{id: i, p: r3.Vec{X: v.X(), Y: v.Y(), Z: v.Z()}}
	}
	return &Locator{tree: kdtree.New(pts, false), n: n}
}

// Len returns the number of indexed vertices.
func (l *Locator) Len() int {
	return l.n
}

// Nearest returns the index of the vertex closest to p and its distance.
// ok is false when the locator has no vertices.
func (l *Locator) Nearest(p mgl64.Vec3) (vid int, dist float64, ok bool) {
	if l.tree == nil {
		return -1, 0, false
	}
	q := vertexPoint{id: -1, p: r3.Vec{X: p.X(), Y: p.Y(), Z: p.Z()}}
	c, d2 := l.tree.Nearest(q)
	if c == nil {
		return -1, 0, false
	}
	return c.(vertexPoint).id, math.Sqrt(d2), true
}
