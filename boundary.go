package streetnodes

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// DEFAULT_BOUNDARY_BUFFER is outward buffer (map units) of the study boundary
	DEFAULT_BOUNDARY_BUFFER = 10.0
)

// BoundaryPolygon is an administrative unit. Null flags mark labels absent in the source layer
type BoundaryPolygon struct {
	District          string
	Neighbourhood     string
	DistrictNull      bool
	NeighbourhoodNull bool
	Geometry          orb.MultiPolygon
}

// BoundarySet is an ordered set of administrative units. Order is the tie-break for shared edges
type BoundarySet []BoundaryPolygon

// Locate returns position of the first polygon which contains given point, -1 if none
func (set BoundarySet) Locate(pt orb.Point) int {
	for i := range set {
		if !set[i].Geometry.Bound().Contains(pt) {
			continue
		}
		if planar.MultiPolygonContains(set[i].Geometry, pt) {
			return i
		}
	}
	return -1
}

// Geometries returns geometries of every unit in set order
func (set BoundarySet) Geometries() []orb.MultiPolygon {
	out := make([]orb.MultiPolygon, len(set))
	for i := range set {
		out[i] = set[i].Geometry
	}
	return out
}

// StudyBoundary is union of boundary polygons buffered outward
type StudyBoundary struct {
	polygons []orb.Polygon
	bounds   []orb.Bound
	buffer   float64
}

// NewStudyBoundary prepares buffered union of given polygons.
// Point is contained when it is inside any polygon or not farther than buffer from any polygon boundary.
func NewStudyBoundary(polygons []orb.MultiPolygon, buffer float64) *StudyBoundary {
	boundary := &StudyBoundary{
		buffer: buffer,
	}
	for _, mp := range polygons {
		for _, poly := range mp {
			if len(poly) == 0 {
				continue
			}
			boundary.polygons = append(boundary.polygons, poly)
			boundary.bounds = append(boundary.bounds, poly.Bound().Pad(buffer))
		}
	}
	return boundary
}

// Contains checks if point lies inside buffered boundary
func (boundary *StudyBoundary) Contains(pt orb.Point) bool {
	for i, poly := range boundary.polygons {
		if !boundary.bounds[i].Contains(pt) {
			continue
		}
		if planar.PolygonContains(poly, pt) {
			return true
		}
		if boundary.buffer > 0 && planar.DistanceFrom(poly, pt) <= boundary.buffer {
			return true
		}
	}
	return false
}

// Buffer returns outward buffer distance
func (boundary *StudyBoundary) Buffer() float64 {
	return boundary.buffer
}
