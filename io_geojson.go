package streetnodes

import (
	"io"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ReadGeoJSON reads features of GeoJSON FeatureCollection. Numeric properties without fraction are read as integers
func ReadGeoJSON(fileName string) (*Layer, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read file")
	}
	collection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse feature collection")
	}
	layer := &Layer{
		Geometries: make([]orb.Geometry, 0, len(collection.Features)),
	}
	builder := newAttributeBuilder()
	for i, feature := range collection.Features {
		g, err := fromGeoJSONGeometry(feature.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		layer.Geometries = append(layer.Geometries, g)
		builder.addMap(feature.Properties)
	}
	layer.Columns = builder.columns()
	return layer, nil
}

// WriteGeoJSON writes dataset as GeoJSON FeatureCollection. Nulls are written as JSON null
func WriteGeoJSON(fileName string, dataset *Dataset) error {
	collection := geojson.NewFeatureCollection()
	for i := 0; i < dataset.Len(); i++ {
		feature := geojson.NewFeature(toGeoJSONGeometry(dataset.Geometries[i]))
		feature.SetProperty(dataset.keyName(), dataset.Keys[i])
		for _, column := range dataset.Columns {
			feature.SetProperty(column.Name, column.Value(i))
		}
		collection.AddFeature(feature)
	}
	b, err := collection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal feature collection")
	}
	if err := os.WriteFile(fileName, b, 0644); err != nil {
		return errors.Wrap(err, "Can't write file")
	}
	return nil
}

func fromGeoJSONGeometry(g *geojson.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	switch g.Type {
	case geojson.GeometryPoint:
		return toOrbPoint(g.Point), nil
	case geojson.GeometryMultiPoint:
		return orb.MultiPoint(toOrbPoints(g.MultiPoint)), nil
	case geojson.GeometryLineString:
		return orb.LineString(toOrbPoints(g.LineString)), nil
	case geojson.GeometryMultiLineString:
		mls := make(orb.MultiLineString, len(g.MultiLineString))
		for i := range g.MultiLineString {
			mls[i] = toOrbPoints(g.MultiLineString[i])
		}
		return mls, nil
	case geojson.GeometryPolygon:
		return toOrbPolygon(g.Polygon), nil
	case geojson.GeometryMultiPolygon:
		mp := make(orb.MultiPolygon, len(g.MultiPolygon))
		for i := range g.MultiPolygon {
			mp[i] = toOrbPolygon(g.MultiPolygon[i])
		}
		return mp, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "geometry type '%s'", g.Type)
	}
}

func toOrbPoint(coordinates []float64) orb.Point {
	if len(coordinates) < 2 {
		return orb.Point{}
	}
	return orb.Point{coordinates[0], coordinates[1]}
}

func toOrbPoints(coordinates [][]float64) []orb.Point {
	pts := make([]orb.Point, len(coordinates))
	for i := range coordinates {
		pts[i] = toOrbPoint(coordinates[i])
	}
	return pts
}

func toOrbPolygon(rings [][][]float64) orb.Polygon {
	polygon := make(orb.Polygon, len(rings))
	for i := range rings {
		polygon[i] = toOrbPoints(rings[i])
	}
	return polygon
}

func fromOrbPoints(pts []orb.Point) [][]float64 {
	coordinates := make([][]float64, len(pts))
	for i := range pts {
		coordinates[i] = []float64{pts[i][0], pts[i][1]}
	}
	return coordinates
}

func fromOrbPolygon(polygon orb.Polygon) [][][]float64 {
	rings := make([][][]float64, len(polygon))
	for i := range polygon {
		rings[i] = fromOrbPoints(polygon[i])
	}
	return rings
}

func toGeoJSONGeometry(g orb.Geometry) *geojson.Geometry {
	switch v := g.(type) {
	case orb.Point:
		return geojson.NewPointGeometry([]float64{v[0], v[1]})
	case orb.MultiPoint:
		return geojson.NewMultiPointGeometry(fromOrbPoints(v)...)
	case orb.LineString:
		return geojson.NewLineStringGeometry(fromOrbPoints(v))
	case orb.MultiLineString:
		lines := make([][][]float64, len(v))
		for i := range v {
			lines[i] = fromOrbPoints(v[i])
		}
		return geojson.NewMultiLineStringGeometry(lines...)
	case orb.Polygon:
		return geojson.NewPolygonGeometry(fromOrbPolygon(v))
	case orb.MultiPolygon:
		polygons := make([][][][]float64, len(v))
		for i := range v {
			polygons[i] = fromOrbPolygon(v[i])
		}
		return geojson.NewMultiPolygonGeometry(polygons...)
	default:
		return nil
	}
}
