package mesh

import "math"

// vertexKey is the exact bit pattern of a point. Two soup vertices merge
// only when all three coordinates have identical bits; -0 and +0 stay
// distinct and a NaN matches only the same NaN payload.
type vertexKey [3]uint64

func keyOf(x, y, z float64) vertexKey {
	return vertexKey{math.Float64bits(x), math.Float64bits(y), math.Float64bits(z)}
}

// Deduplicate converts a triangle soup into an indexed mesh. Indices are
// assigned in first-seen order and each face keeps its winding order.
// Degenerate faces are kept; their repeated corners share an index.
func Deduplicate(soup Soup) (*Indexed, error) {
	if err := soup.Validate(); err != nil {
		return nil, err
	}

	numFaces := soup.FaceCount()
	index := make(map[vertexKey]int, numFaces)
	vertices := make([]float64, 0, numFaces*3)
	faces := make([]int, 0, numFaces*3)

	for f := 0; f < len(soup); f += 9 {
		for c := 0; c < 3; c++ {
			x, y, z := soup[f+c*3], soup[f+c*3+1], soup[f+c*3+2]
			k := keyOf(x, y, z)
			idx, ok := index[k]
			if !ok {
				idx = len(vertices) / 3
				index[k] = idx
				vertices = append(vertices, x, y, z)
			}
			faces = append(faces, idx)
		}
	}

	return &Indexed{Vertices: vertices, Faces: faces}, nil
}

// Duplicate expands an indexed mesh into a triangle soup, emitting the
// referenced vertices of each face in triple order. The inputs are
// validated up front; nothing is emitted for malformed input.
func Duplicate(vertices []float64, faces []int) (Soup, error) {
	if err := validateIndexed(vertices, faces); err != nil {
		return nil, err
	}

	soup := make(Soup, 0, len(faces)*3)
	for _, idx := range faces {
		soup = append(soup, vertices[idx*3], vertices[idx*3+1], vertices[idx*3+2])
	}
	return soup, nil
}

func validateIndexed(vertices []float64, faces []int) error {
	if len(vertices)%3 != 0 {
		return &InvalidInputError{What: "vertices", Length: len(vertices), Stride: 3}
	}
	if len(faces)%3 != 0 {
		return &InvalidInputError{What: "faces", Length: len(faces), Stride: 3}
	}
	numVerts := len(vertices) / 3
	for i, idx := range faces {
		if idx < 0 || idx >= numVerts {
			return &IndexOutOfRangeError{Face: i / 3, Corner: i % 3, Index: idx, VertexCount: numVerts}
		}
	}
	return nil
}
