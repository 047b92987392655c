package streetnodes

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func Round(x, unit float64) float64 {
	if x > 0 {
		return float64(int64(x/unit+0.5)) * unit
	}
	return float64(int64(x/unit-0.5)) * unit
}

func lineAsString(l orb.LineString) string {
	agg := []string{}
	for _, pt := range l {
		agg = append(agg, fmt.Sprintf("[%f, %f]", pt.X(), pt.Y()))
	}
	return "[" + strings.Join(agg, ",") + "]"
}

func TestFindMiddlePoint(t *testing.T) {
	line := orb.LineString{{0, 0}, {10, 0}, {10, 10}, {20, 10}}
	cutStart, middlePoint := findMiddlePoint(line)
	correctMiddlePoint := orb.Point{10, 5}
	if middlePoint != correctMiddlePoint {
		t.Errorf("Middle point should be %v, but got %v", correctMiddlePoint, middlePoint)
	}
	if cutStart != 1 {
		t.Errorf("Middle point should be after %d-th point, not %d-th", 1, cutStart)
	}
}

func TestMeasureBearing(t *testing.T) {
	cases := []struct {
		line    orb.LineString
		bearing float64
	}{
		{orb.LineString{{0, 0}, {1, 0}}, 0},
		{orb.LineString{{0, 0}, {0, 1}}, 90},
		{orb.LineString{{0, 0}, {-1, 0}}, 180},
		{orb.LineString{{0, 0}, {0, -1}}, -90},
		{orb.LineString{{0, 0}, {1, 1}}, 45},
	}
	for _, c := range cases {
		got := measureBearing(c.line)
		if Round(got, 1e-9) != Round(c.bearing, 1e-9) {
			t.Errorf("Bearing for %s should be %f, but got %f", lineAsString(c.line), c.bearing, got)
		}
	}
}

func TestMeasureBearingIgnoresInteriorVertices(t *testing.T) {
	base := orb.LineString{{0, 0}, {3, 7}, {8, -2}, {10, 4}}
	permuted := orb.LineString{{0, 0}, {8, -2}, {3, 7}, {10, 4}}
	detour := orb.LineString{{0, 0}, {-50, 50}, {100, -40}, {3, 3}, {10, 4}}
	expected := measureBearing(orb.LineString{{0, 0}, {10, 4}})
	for _, line := range []orb.LineString{base, permuted, detour} {
		if got := measureBearing(line); got != expected {
			t.Errorf("Bearing for %s should be %f, but got %f", lineAsString(line), expected, got)
		}
	}
}

func TestTurnAngle(t *testing.T) {
	east := segmentHeading(orb.Point{0, 0}, orb.Point{1, 0})
	north := segmentHeading(orb.Point{0, 0}, orb.Point{0, 1})
	west := segmentHeading(orb.Point{0, 0}, orb.Point{-1, 0})
	southWest := segmentHeading(orb.Point{0, 0}, orb.Point{-1, -1})
	if a := turnAngle(east, east); a != 0 {
		t.Errorf("Straight continuation should be 0, but got %f", a)
	}
	if a := turnAngle(east, north); Round(a, 1e-9) != 90 {
		t.Errorf("Left turn should be 90, but got %f", a)
	}
	if a := turnAngle(east, west); Round(a, 1e-9) != 180 {
		t.Errorf("U-turn should be 180, but got %f", a)
	}
	if a := turnAngle(north, southWest); Round(a, 1e-9) != 135 {
		t.Errorf("Sharp turn should be 135, but got %f", a)
	}
}

func TestReverseLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 1}, {2, 0}}
	reversed := reverseLine(line)
	correct := "[[2.000000, 0.000000],[1.000000, 1.000000],[0.000000, 0.000000]]"
	if lineAsString(reversed) != correct {
		t.Errorf("Reversed line should be '%s' but got '%s'", correct, lineAsString(reversed))
	}
	if line[0] != (orb.Point{0, 0}) {
		t.Errorf("Source line must not be modified")
	}
}

func TestEPSG4326To3857(t *testing.T) {
	x, y := epsg4326To3857(37.6417350769043, 55.751849391735284)
	if math.Abs(x-4190258.78) > 0.01 {
		t.Errorf("X should be near %f, but got %f", 4190258.78, x)
	}
	if math.Abs(y-7509173.66) > 0.01 {
		t.Errorf("Y should be near %f, but got %f", 7509173.66, y)
	}
}
