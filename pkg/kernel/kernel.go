// Package kernel defines the solid-modeling interface used to produce
// triangle soups without reading a mesh file. Implementations tessellate
// solids into the same flat face-ordered layout a mesh loader hands to
// the vertex indexer.
package kernel

import (
	"fmt"
	"strings"

	"github.com/chazu/deform/pkg/mesh"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, centered at the origin.
	Box(x, y, z float64) Solid
	Sphere(radius float64) Solid
	Cylinder(height, radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToSoup tessellates a solid into a triangle soup.
	ToSoup(s Solid) (mesh.Soup, error)
}

// Primitives lists the names Primitive accepts.
var Primitives = []string{"box", "sphere", "cylinder", "drilled", "rounded", "dumbbell"}

// Primitive builds one of the named solids with overall extent size.
// Besides the plain box, sphere and cylinder there are three composites:
//
//	drilled   a box with a vertical bore of a quarter its width
//	rounded   a box with its corners cut off by a sphere
//	dumbbell  two balls joined by a bar along X, 1.5 size long overall
func Primitive(k Kernel, name string, size float64) (Solid, error) {
	switch name {
	case "box":
		return k.Box(size, size, size), nil
	case "sphere":
		return k.Sphere(size / 2), nil
	case "cylinder":
		return k.Cylinder(size, size/2), nil
	case "drilled":
		return k.Difference(k.Box(size, size, size), k.Cylinder(1.2*size, size/4)), nil
	case "rounded":
		return k.Intersection(k.Box(size, size, size), k.Sphere(0.65*size)), nil
	case "dumbbell":
		bar := k.Rotate(k.Cylinder(size, size/8), 0, 90, 0)
		left := k.Translate(k.Sphere(size/4), -size/2, 0, 0)
		right := k.Translate(k.Sphere(size/4), size/2, 0, 0)
		return k.Union(k.Union(bar, left), right), nil
	}
	return nil, &UnknownPrimitiveError{Name: name}
}

// UnknownPrimitiveError is returned by Primitive for an unsupported name.
type UnknownPrimitiveError struct {
	Name string
}

func (e *UnknownPrimitiveError) Error() string {
	return fmt.Sprintf("kernel: unknown primitive %q, expected one of %s", e.Name, strings.Join(Primitives, ", "))
}
