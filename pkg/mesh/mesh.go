// Package mesh converts between triangle-soup and indexed mesh
// representations. Both forms use flat float64 arrays so they can be
// handed to a renderer or serialized without reshaping.
package mesh

import "github.com/go-gl/mathgl/mgl64"

// Soup is an unindexed triangle list: every 9 values are one face, three
// points in winding order. Vertices shared between faces are repeated.
type Soup []float64

// FaceCount returns the number of complete faces in the soup.
func (s Soup) FaceCount() int {
	return len(s) / 9
}

// Validate reports an InvalidInputError if the soup has trailing values
// that do not form a whole face.
func (s Soup) Validate() error {
	if len(s)%9 != 0 {
		return &InvalidInputError{What: "soup", Length: len(s), Stride: 9}
	}
	return nil
}

// Float32 returns the soup as a render buffer.
func (s Soup) Float32() []float32 {
	out := make([]float32, len(s))
	for i, v := range s {
		out[i] = float32(v)
	}
	return out
}

// SoupFromFloat32 widens a render buffer into a Soup. Widening is exact,
// so points that were bit-identical stay bit-identical.
func SoupFromFloat32(buf []float32) Soup {
	out := make(Soup, len(buf))
	for i, v := range buf {
		out[i] = float64(v)
	}
	return out
}

// Indexed is a shared vertex list plus per-face index triples.
// Vertices has 3 floats per vertex, Faces has 3 indices per triangle.
type Indexed struct {
	Vertices []float64 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Faces    []int     `json:"faces"`    // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Indexed) VertexCount() int {
	return len(m.Vertices) / 3
}

// FaceCount returns the number of triangles.
func (m *Indexed) FaceCount() int {
	return len(m.Faces) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Indexed) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns the position of vertex i.
func (m *Indexed) Vertex(i int) mgl64.Vec3 {
	return mgl64.Vec3{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]}
}

// Face returns the index triple of face i.
func (m *Indexed) Face(i int) [3]int {
	return [3]int{m.Faces[i*3], m.Faces[i*3+1], m.Faces[i*3+2]}
}

// Validate checks array lengths and that every face index is in range.
func (m *Indexed) Validate() error {
	return validateIndexed(m.Vertices, m.Faces)
}

// Soup expands the mesh back into triangle-soup form.
func (m *Indexed) Soup() (Soup, error) {
	return Duplicate(m.Vertices, m.Faces)
}

// Clone returns a deep copy of the mesh.
func (m *Indexed) Clone() *Indexed {
	return &Indexed{
		Vertices: append([]float64(nil), m.Vertices...),
		Faces:    append([]int(nil), m.Faces...),
	}
}
