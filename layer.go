package streetnodes

import (
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Layer is a vector layer read from file: one geometry and attribute values per feature
type Layer struct {
	Geometries []orb.Geometry
	Columns    []Column
}

// Len returns number of features
func (layer *Layer) Len() int {
	return len(layer.Geometries)
}

// Column returns column by its name
func (layer *Layer) Column(name string) (Column, bool) {
	for _, column := range layer.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

// ReadLayer reads vector layer. Format is chosen by file extension:
// GeoPackage (*.gpkg), GeoJSON (*.geojson, *.json), ESRI Shapefile (*.shp), OSM (*.osm, *.xml, *.pbf; street ways only)
func ReadLayer(fileName string) (*Layer, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".gpkg":
		return ReadGeoPackage(fileName, "")
	case ".geojson", ".json":
		return ReadGeoJSON(fileName)
	case ".shp":
		return ReadShapefile(fileName)
	case ".osm", ".xml", ".pbf":
		return ReadOSMStreets(fileName, DefaultStreetTypes())
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "layer '%s'", fileName)
	}
}

// Lines returns every linear geometry exploded to single parts
func (layer *Layer) Lines() []orb.LineString {
	lines := make([]orb.LineString, 0, layer.Len())
	for _, g := range layer.Geometries {
		lines = append(lines, explodeLines(g)...)
	}
	return lines
}

// Boundaries returns administrative units using given district and neighbourhood fields. Layer order is kept
func (layer *Layer) Boundaries(districtField, neighbourhoodField string) (BoundarySet, error) {
	districts, ok := layer.Column(districtField)
	if !ok {
		return nil, errors.Errorf("boundary layer has no field '%s'", districtField)
	}
	neighbourhoods, ok := layer.Column(neighbourhoodField)
	if !ok {
		return nil, errors.Errorf("boundary layer has no field '%s'", neighbourhoodField)
	}
	set := make(BoundarySet, 0, layer.Len())
	for i, g := range layer.Geometries {
		mp, ok := toMultiPolygon(g)
		if !ok {
			continue
		}
		unit := BoundaryPolygon{Geometry: mp, DistrictNull: true, NeighbourhoodNull: true}
		if v := districts.Value(i); v != nil {
			unit.District = valueString(v)
			unit.DistrictNull = false
		}
		if v := neighbourhoods.Value(i); v != nil {
			unit.Neighbourhood = valueString(v)
			unit.NeighbourhoodNull = false
		}
		set = append(set, unit)
	}
	return set, nil
}

// Premises returns land use points. Non point geometries are represented by the center of their bound
func (layer *Layer) Premises() (*Premises, error) {
	points := make([]orb.Point, layer.Len())
	for i, g := range layer.Geometries {
		switch v := g.(type) {
		case orb.Point:
			points[i] = v
		case orb.MultiPoint:
			if len(v) == 0 {
				return nil, errors.Errorf("premise %d has empty geometry", i)
			}
			points[i] = v[0]
		case nil:
			return nil, errors.Errorf("premise %d has no geometry", i)
		default:
			points[i] = g.Bound().Center()
		}
	}
	return NewPremises(points, layer.Columns)
}

// attributeBuilder collects attribute values row by row and infers column kinds
type attributeBuilder struct {
	names  []string
	values map[string][]interface{}
	rows   int
}

func newAttributeBuilder() *attributeBuilder {
	return &attributeBuilder{
		values: make(map[string][]interface{}),
	}
}

// addMap appends row given as map. New names are registered in sorted order
func (builder *attributeBuilder) addMap(properties map[string]interface{}) {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]interface{}, len(names))
	for i, name := range names {
		values[i] = properties[name]
	}
	builder.add(names, values)
}

// add appends row given as parallel names and values
func (builder *attributeBuilder) add(names []string, values []interface{}) {
	for i, name := range names {
		column, ok := builder.values[name]
		if !ok {
			builder.names = append(builder.names, name)
			column = make([]interface{}, builder.rows, builder.rows+1)
		}
		builder.values[name] = append(column, values[i])
	}
	builder.rows++
	for _, name := range builder.names {
		if len(builder.values[name]) < builder.rows {
			builder.values[name] = append(builder.values[name], nil)
		}
	}
}

// columns returns typed columns. Integral numbers become int64, other numbers float64, booleans bool, the rest strings
func (builder *attributeBuilder) columns() []Column {
	columns := make([]Column, 0, len(builder.names))
	for _, name := range builder.names {
		columns = append(columns, inferColumn(name, builder.values[name]))
	}
	return columns
}

func inferColumn(name string, values []interface{}) Column {
	allBool, allInt, allNumber, any := true, true, true, false
	for _, v := range values {
		switch t := v.(type) {
		case nil:
			continue
		case bool:
			allInt, allNumber = false, false
		case int64, int32, int:
			allBool = false
		case float64:
			allBool = false
			if t != math.Trunc(t) || math.IsInf(t, 0) || math.Abs(t) > 1<<53 {
				allInt = false
			}
		default:
			allBool, allInt, allNumber = false, false, false
		}
		any = true
	}
	valid := make([]bool, len(values))
	hasNull := false
	for i, v := range values {
		valid[i] = v != nil
		if v == nil {
			hasNull = true
		}
	}
	if !hasNull {
		valid = nil
	}
	switch {
	case any && allBool:
		out := make([]bool, len(values))
		for i, v := range values {
			if b, ok := v.(bool); ok {
				out[i] = b
			}
		}
		return Column{Name: name, Kind: COLUMN_BOOL, Bools: out, Valid: valid}
	case any && allInt:
		out := make([]int64, len(values))
		for i, v := range values {
			out[i] = toInt64(v)
		}
		return Column{Name: name, Kind: COLUMN_INT64, Ints: out, Valid: valid}
	case any && allNumber:
		out := make([]float64, len(values))
		for i, v := range values {
			if v == nil {
				out[i] = math.NaN()
				continue
			}
			out[i] = toFloat64(v)
		}
		return Column{Name: name, Kind: COLUMN_FLOAT64, Floats: out, Valid: valid}
	default:
		out := make([]string, len(values))
		for i, v := range values {
			if v != nil {
				out[i] = valueString(v)
			}
		}
		if !any {
			valid = make([]bool, len(values))
		}
		return Column{Name: name, Kind: COLUMN_STRING, Strings: out, Valid: valid}
	}
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case int:
		return float64(t)
	default:
		return math.NaN()
	}
}
