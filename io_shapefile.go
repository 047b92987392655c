package streetnodes

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	// dbfFieldNameLength is maximum length of dBASE field name
	dbfFieldNameLength = 10
	dbfStringLength    = 254
	dbfNumberLength    = 18
	dbfFloatPrecision  = 8
)

// ReadShapefile reads ESRI Shapefile with its dBASE attributes
func ReadShapefile(fileName string) (*Layer, error) {
	reader, err := shp.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open shapefile '%s'", fileName)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}
	layer := &Layer{}
	builder := newAttributeBuilder()
	for reader.Next() {
		_, shape := reader.Shape()
		layer.Geometries = append(layer.Geometries, fromShape(shape))
		values := make([]interface{}, len(fields))
		for i, f := range fields {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			values[i] = parseDBFValue(f, raw)
		}
		builder.add(names, values)
	}
	layer.Columns = builder.columns()
	return layer, nil
}

func parseDBFValue(field shp.Field, raw string) interface{} {
	if raw == "" {
		return nil
	}
	switch field.Fieldtype {
	case 'N', 'F':
		if field.Precision == 0 {
			if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return v
			}
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
		return nil
	case 'L':
		switch strings.ToUpper(raw) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		default:
			return nil
		}
	default:
		return raw
	}
}

func shapeParts(numParts int32, parts []int32, points []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}
		part := make([]orb.Point, 0, end-start)
		for j := start; j < end; j++ {
			part = append(part, orb.Point{points[j].X, points[j].Y})
		}
		out = append(out, part)
	}
	return out
}

// fromShape converts shape into orb geometry. Clockwise polygon rings start new polygon, others are holes
func fromShape(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	case *shp.PolyLine:
		parts := shapeParts(s.NumParts, s.Parts, s.Points)
		if len(parts) == 1 {
			return orb.LineString(parts[0])
		}
		mls := make(orb.MultiLineString, len(parts))
		for i := range parts {
			mls[i] = parts[i]
		}
		return mls
	case *shp.Polygon:
		mp := orb.MultiPolygon{}
		for _, part := range shapeParts(s.NumParts, s.Parts, s.Points) {
			ring := orb.Ring(part)
			if ring.Orientation() == orb.CW || len(mp) == 0 {
				mp = append(mp, orb.Polygon{ring})
				continue
			}
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
		}
		if len(mp) == 1 {
			return mp[0]
		}
		return mp
	default:
		return nil
	}
}

func toShape(g orb.Geometry) (shp.Shape, error) {
	switch v := g.(type) {
	case orb.Point:
		return &shp.Point{X: v[0], Y: v[1]}, nil
	case orb.LineString:
		return shp.NewPolyLine([][]shp.Point{toShapePoints(v)}), nil
	case orb.MultiLineString:
		parts := make([][]shp.Point, len(v))
		for i := range v {
			parts[i] = toShapePoints(v[i])
		}
		return shp.NewPolyLine(parts), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "shapefile geometry %T", g)
	}
}

func toShapePoints(line orb.LineString) []shp.Point {
	pts := make([]shp.Point, len(line))
	for i := range line {
		pts[i] = shp.Point{X: line[i][0], Y: line[i][1]}
	}
	return pts
}

// dbfFields returns dBASE field definitions. Names are truncated to ten characters, truncated names must stay unique
func dbfFields(keyName string, columns []Column) ([]shp.Field, error) {
	if len(keyName) > dbfFieldNameLength {
		keyName = keyName[:dbfFieldNameLength]
	}
	fields := make([]shp.Field, 0, len(columns)+1)
	fields = append(fields, shp.StringField(keyName, dbfStringLength))
	seen := map[string]string{keyName: keyName}
	for _, column := range columns {
		name := column.Name
		if len(name) > dbfFieldNameLength {
			name = name[:dbfFieldNameLength]
		}
		if other, ok := seen[name]; ok {
			return nil, errors.Wrapf(ErrSchemaCollision, "columns '%s' and '%s' share dBASE name '%s'", other, column.Name, name)
		}
		seen[name] = column.Name
		switch column.Kind {
		case COLUMN_FLOAT64, COLUMN_FLOAT32:
			fields = append(fields, shp.FloatField(name, dbfNumberLength, dbfFloatPrecision))
		case COLUMN_INT64, COLUMN_INT32:
			fields = append(fields, shp.NumberField(name, dbfNumberLength))
		case COLUMN_BOOL:
			fields = append(fields, shp.StringField(name, 1))
		default:
			fields = append(fields, shp.StringField(name, dbfStringLength))
		}
	}
	return fields, nil
}

func dbfValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return ""
	case int64:
		return int(t)
	case int32:
		return int(t)
	case float32:
		return float64(t)
	case bool:
		if t {
			return "T"
		}
		return "F"
	default:
		return t
	}
}

// WriteShapefile writes dataset as ESRI Shapefile (*.shp, *.shx, *.dbf). Column names longer than ten characters are truncated
func WriteShapefile(fileName string, dataset *Dataset) error {
	fields, err := dbfFields(dataset.keyName(), dataset.Columns)
	if err != nil {
		return err
	}
	var shapeType shp.ShapeType = shp.POINT
	if dataset.GeometryKind == GEOMETRY_LINE {
		shapeType = shp.POLYLINE
	}
	writer, err := shp.Create(fileName, shapeType)
	if err != nil {
		return errors.Wrapf(err, "Can't create shapefile '%s'", fileName)
	}
	defer writer.Close()
	if err := writer.SetFields(fields); err != nil {
		return errors.Wrap(err, "Can't set dBASE fields")
	}
	for i := 0; i < dataset.Len(); i++ {
		shape, err := toShape(dataset.Geometries[i])
		if err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
		row := int(writer.Write(shape))
		if err := writer.WriteAttribute(row, 0, dataset.Keys[i]); err != nil {
			return errors.Wrapf(err, "Can't write attribute '%s' of row %d", dataset.keyName(), i)
		}
		for j, column := range dataset.Columns {
			if err := writer.WriteAttribute(row, j+1, dbfValue(column.Value(i))); err != nil {
				return errors.Wrapf(err, "Can't write attribute '%s' of row %d", column.Name, i)
			}
		}
	}
	return nil
}
