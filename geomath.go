package streetnodes

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	pi180Rev = 180.0 / math.Pi
)

// radiansTodegrees r = deg  * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// getLength returns planar length for given line
func getLength(line orb.LineString) float64 {
	return planar.Length(line)
}

// measureBearing returns direction (degrees, counter-clockwise from +X axis) from the first to the last point of given line.
// Intermediate vertices are ignored.
//
// Note: panics if number of points in line is less than 2
func measureBearing(line orb.LineString) float64 {
	first := line[0]
	last := line[len(line)-1]
	return radiansTodegrees(math.Atan2(last.Y()-first.Y(), last.X()-first.X()))
}

// segmentHeading returns direction (radians) of segment p->q
func segmentHeading(p, q orb.Point) float64 {
	return math.Atan2(q.Y()-p.Y(), q.X()-p.X())
}

// turnAngle returns absolute turning angle (degrees, 0..180) between two consecutive headings (radians)
func turnAngle(headingIn, headingOut float64) float64 {
	angle := headingOut - headingIn
	for angle < -1*math.Pi {
		angle += 2 * math.Pi
	}
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	return math.Abs(radiansTodegrees(angle))
}

// findMiddlePoint returns middle point for give line (not center point) and index of point in line right before middle one
func findMiddlePoint(line orb.LineString) (int, orb.Point) {
	if len(line) == 1 {
		return 0, line[0]
	}
	halfDistance := getLength(line) / 2.0
	cl := 0.0
	ol := 0.0
	result := line[0]
	idx := 0
	for i := 1; i < len(line); i++ {
		ol = cl
		tmpDist := planar.Distance(line[i-1], line[i])
		cl += tmpDist
		if halfDistance <= cl && halfDistance > ol {
			result = pointOnSegmentByFraction(line[i-1], line[i], (halfDistance-ol)/tmpDist)
			idx = i - 1
			break
		}
	}
	return idx, result
}

// pointOnSegmentByFraction returns a point on given segment using fraction of its length
func pointOnSegmentByFraction(p, q orb.Point, fraction float64) orb.Point {
	return orb.Point{
		(1-fraction)*p.X() + (fraction * q.X()),
		(1-fraction)*p.Y() + (fraction * q.Y()),
	}
}

// reverseLine reverses order of points in given line. Returns new slice
func reverseLine(pts orb.LineString) orb.LineString {
	inputLen := len(pts)
	output := make(orb.LineString, inputLen)
	for i, n := range pts {
		j := inputLen - i - 1
		output[j] = n
	}
	return output
}

// roundTo rounds value to given number of decimals
func roundTo(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}
