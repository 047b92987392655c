package streetnodes

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	earthR = 20037508.34
)

// epsg4326To3857 projects WGS84 longitude/latitude to Web Mercator metres
func epsg4326To3857(lon, lat float64) (float64, float64) {
	x := lon * earthR / 180
	y := math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * earthR / 180
	return x, y
}

func pointToEuclidean(pt orb.Point) orb.Point {
	euclideanX, euclideanY := epsg4326To3857(pt.Lon(), pt.Lat())
	return orb.Point{euclideanX, euclideanY}
}

// explodeLines splits multi-part geometry into single part lines. Non linear geometries are ignored
func explodeLines(g orb.Geometry) []orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return []orb.LineString{v}
	case orb.MultiLineString:
		out := make([]orb.LineString, 0, len(v))
		for _, ls := range v {
			out = append(out, ls)
		}
		return out
	case orb.Collection:
		out := []orb.LineString{}
		for _, sub := range v {
			out = append(out, explodeLines(sub)...)
		}
		return out
	default:
		return nil
	}
}

// toMultiPolygon converts polygonal geometry into multipolygon. Returns false for non polygonal geometries
func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, true
	case orb.MultiPolygon:
		return v, true
	case orb.Bound:
		return orb.MultiPolygon{v.ToPolygon()}, true
	default:
		return nil, false
	}
}
