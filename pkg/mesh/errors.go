package mesh

import "fmt"

// InvalidInputError is returned when a flat array's length is not a
// multiple of its stride (9 for a soup, 3 for vertices and faces).
type InvalidInputError struct {
	What   string
	Length int
	Stride int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("mesh: %s length %d is not a multiple of %d", e.What, e.Length, e.Stride)
}

// IndexOutOfRangeError is returned when a face references a vertex
// outside [0, VertexCount).
type IndexOutOfRangeError struct {
	Face        int
	Corner      int
	Index       int
	VertexCount int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("mesh: face %d corner %d: index %d out of range [0,%d)",
		e.Face, e.Corner, e.Index, e.VertexCount)
}
