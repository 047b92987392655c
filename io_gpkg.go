package streetnodes

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DEFAULT_SRID = 25830

	gpkgApplicationID = 1196444487
	gpkgUserVersion   = 10200
	gpkgGeometryField = "geom"
	gpkgPrimaryKey    = "fid"
)

// gpkgEnvelopeSizes maps envelope indicator of geometry blob header to envelope size in bytes
var gpkgEnvelopeSizes = [...]int{0, 32, 48, 48, 64}

const gpkgSchema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name TEXT NOT NULL,
	srs_id INTEGER PRIMARY KEY,
	organization TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	description TEXT
);
CREATE TABLE gpkg_contents (
	table_name TEXT NOT NULL PRIMARY KEY,
	data_type TEXT NOT NULL,
	identifier TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE,
	min_y DOUBLE,
	max_x DOUBLE,
	max_y DOUBLE,
	srs_id INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);
CREATE TABLE gpkg_geometry_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL,
	z TINYINT NOT NULL,
	m TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys (srs_id)
);
`

var gpkgDefinitions = map[int]string{
	4326: `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`,
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ReadGeoPackage reads features of GeoPackage layer. Empty layerName selects the first feature layer
func ReadGeoPackage(fileName, layerName string) (*Layer, error) {
	if _, err := os.Stat(fileName); err != nil {
		return nil, errors.Wrap(err, "Can't open GeoPackage")
	}
	db, err := sql.Open("sqlite", "file:"+fileName+"?mode=ro")
	if err != nil {
		return nil, errors.Wrap(err, "Can't open GeoPackage")
	}
	defer db.Close()

	var geomColumn string
	if layerName == "" {
		err = db.QueryRow("SELECT table_name, column_name FROM gpkg_geometry_columns ORDER BY table_name LIMIT 1").Scan(&layerName, &geomColumn)
	} else {
		err = db.QueryRow("SELECT column_name FROM gpkg_geometry_columns WHERE table_name = ?", layerName).Scan(&geomColumn)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Can't find feature layer '%s'", layerName)
	}

	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(layerName)))
	if err != nil {
		return nil, errors.Wrap(err, "Can't read layer schema")
	}
	names := []string{}
	declared := []string{}
	for rows.Next() {
		var (
			cid       int
			name      string
			kind      string
			notNull   int
			dfltValue interface{}
			pk        int
		)
		if err := rows.Scan(&cid, &name, &kind, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "Can't scan layer schema")
		}
		if pk > 0 || name == geomColumn {
			continue
		}
		names = append(names, name)
		declared = append(declared, strings.ToUpper(kind))
	}
	rows.Close()

	selected := make([]string, 0, len(names)+1)
	selected = append(selected, quoteIdent(geomColumn))
	for _, name := range names {
		selected = append(selected, quoteIdent(name))
	}
	features, err := db.Query(fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), quoteIdent(layerName)))
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query layer '%s'", layerName)
	}
	defer features.Close()

	layer := &Layer{}
	builder := newAttributeBuilder()
	for features.Next() {
		var blob []byte
		values := make([]interface{}, len(names))
		targets := make([]interface{}, len(names)+1)
		targets[0] = &blob
		for i := range values {
			targets[i+1] = &values[i]
		}
		if err := features.Scan(targets...); err != nil {
			return nil, errors.Wrap(err, "Can't scan feature")
		}
		g, err := decodeGeoPackageGeometry(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", layer.Len())
		}
		layer.Geometries = append(layer.Geometries, g)
		for i, v := range values {
			values[i] = sqliteValue(v, declared[i])
		}
		builder.add(names, values)
	}
	if err := features.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate features")
	}
	layer.Columns = builder.columns()
	return layer, nil
}

func sqliteValue(v interface{}, declared string) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int64:
		if declared == "BOOLEAN" {
			return t != 0
		}
		return t
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	default:
		return t
	}
}

// decodeGeoPackageGeometry decodes standard GeoPackage binary: "GP" header, optional envelope and WKB body
func decodeGeoPackageGeometry(blob []byte) (orb.Geometry, error) {
	if blob == nil {
		return nil, nil
	}
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, errors.Wrap(ErrUnsupportedFormat, "not a GeoPackage geometry blob")
	}
	flags := blob[3]
	indicator := int(flags>>1) & 0x07
	if indicator >= len(gpkgEnvelopeSizes) {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "envelope indicator %d", indicator)
	}
	if flags&0x10 != 0 {
		return nil, nil
	}
	headerLength := 8 + gpkgEnvelopeSizes[indicator]
	if len(blob) < headerLength {
		return nil, errors.Wrap(ErrUnsupportedFormat, "truncated GeoPackage geometry blob")
	}
	g, err := wkb.Unmarshal(blob[headerLength:])
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode WKB")
	}
	return g, nil
}

// encodeGeoPackageGeometry encodes geometry as little endian GeoPackage binary with XY envelope
func encodeGeoPackageGeometry(g orb.Geometry, srid int) ([]byte, error) {
	body, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrap(err, "Can't encode WKB")
	}
	bound := g.Bound()
	blob := make([]byte, 8+32, 8+32+len(body))
	blob[0] = 'G'
	blob[1] = 'P'
	blob[2] = 0
	blob[3] = 0x01 | 1<<1
	binary.LittleEndian.PutUint32(blob[4:], uint32(int32(srid)))
	binary.LittleEndian.PutUint64(blob[8:], math.Float64bits(bound.Min[0]))
	binary.LittleEndian.PutUint64(blob[16:], math.Float64bits(bound.Max[0]))
	binary.LittleEndian.PutUint64(blob[24:], math.Float64bits(bound.Min[1]))
	binary.LittleEndian.PutUint64(blob[32:], math.Float64bits(bound.Max[1]))
	return append(blob, body...), nil
}

func sqliteType(kind ColumnKind) string {
	switch kind {
	case COLUMN_FLOAT64, COLUMN_FLOAT32:
		return "REAL"
	case COLUMN_INT64:
		return "INTEGER"
	case COLUMN_INT32:
		return "MEDIUMINT"
	case COLUMN_BOOL:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func sqliteArgument(v interface{}) interface{} {
	switch t := v.(type) {
	case float32:
		return float64(t)
	case int32:
		return int64(t)
	default:
		return t
	}
}

// WriteGeoPackage writes dataset as a single feature layer of new GeoPackage. Existing file is replaced
func WriteGeoPackage(fileName, layerName string, dataset *Dataset, srid int) error {
	keyName := dataset.keyName()
	reserved := map[string]struct{}{gpkgPrimaryKey: {}, gpkgGeometryField: {}, strings.ToLower(keyName): {}}
	for _, column := range dataset.Columns {
		if _, ok := reserved[strings.ToLower(column.Name)]; ok {
			return errors.Wrapf(ErrSchemaCollision, "column '%s'", column.Name)
		}
		reserved[strings.ToLower(column.Name)] = struct{}{}
	}
	if err := os.Remove(fileName); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "Can't replace GeoPackage")
	}
	db, err := sql.Open("sqlite", fileName)
	if err != nil {
		return errors.Wrap(err, "Can't create GeoPackage")
	}
	defer db.Close()
	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA application_id=%d", gpkgApplicationID),
		fmt.Sprintf("PRAGMA user_version=%d", gpkgUserVersion),
	} {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "Can't exec %s", pragma)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()
	if _, err := tx.Exec(gpkgSchema); err != nil {
		return errors.Wrap(err, "Can't create GeoPackage schema")
	}
	srsRows := [][]interface{}{
		{"Undefined cartesian SRS", -1, "NONE", -1, "undefined", "undefined cartesian coordinate reference system"},
		{"Undefined geographic SRS", 0, "NONE", 0, "undefined", "undefined geographic coordinate reference system"},
		{"WGS 84 geodetic", 4326, "EPSG", 4326, gpkgDefinitions[4326], "longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid"},
	}
	if srid != -1 && srid != 0 && srid != 4326 {
		definition, ok := gpkgDefinitions[srid]
		if !ok {
			definition = "undefined"
		}
		srsRows = append(srsRows, []interface{}{fmt.Sprintf("EPSG:%d", srid), srid, "EPSG", srid, definition, nil})
	}
	for _, row := range srsRows {
		if _, err := tx.Exec("INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition, description) VALUES (?, ?, ?, ?, ?, ?)", row...); err != nil {
			return errors.Wrap(err, "Can't register spatial reference system")
		}
	}

	geometryType := "POINT"
	if dataset.GeometryKind == GEOMETRY_LINE {
		geometryType = "LINESTRING"
	}
	definitions := []string{
		fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL", gpkgPrimaryKey),
		fmt.Sprintf("%s %s", gpkgGeometryField, geometryType),
		fmt.Sprintf("%s TEXT", quoteIdent(keyName)),
	}
	columns := []string{gpkgGeometryField, quoteIdent(keyName)}
	for _, column := range dataset.Columns {
		definitions = append(definitions, fmt.Sprintf("%s %s", quoteIdent(column.Name), sqliteType(column.Kind)))
		columns = append(columns, quoteIdent(column.Name))
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(layerName), strings.Join(definitions, ", "))); err != nil {
		return errors.Wrapf(err, "Can't create layer '%s'", layerName)
	}

	bound := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(layerName), strings.Join(columns, ", "), placeholders))
	if err != nil {
		return errors.Wrap(err, "Can't prepare insert")
	}
	defer stmt.Close()
	args := make([]interface{}, len(columns))
	for i := 0; i < dataset.Len(); i++ {
		blob, err := encodeGeoPackageGeometry(dataset.Geometries[i], srid)
		if err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
		bound = bound.Union(dataset.Geometries[i].Bound())
		args[0] = blob
		args[1] = dataset.Keys[i]
		for j, column := range dataset.Columns {
			args[j+2] = sqliteArgument(column.Value(i))
		}
		if _, err := stmt.Exec(args...); err != nil {
			return errors.Wrapf(err, "Can't insert row %d", i)
		}
	}

	var extent []interface{}
	if dataset.Len() > 0 {
		extent = []interface{}{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
	} else {
		extent = []interface{}{nil, nil, nil, nil}
	}
	if _, err := tx.Exec("INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id) VALUES (?, 'features', ?, ?, ?, ?, ?, ?)",
		layerName, layerName, extent[0], extent[1], extent[2], extent[3], srid); err != nil {
		return errors.Wrap(err, "Can't register layer contents")
	}
	if _, err := tx.Exec("INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES (?, ?, ?, ?, 0, 0)",
		layerName, gpkgGeometryField, geometryType, srid); err != nil {
		return errors.Wrap(err, "Can't register geometry column")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "Can't commit GeoPackage")
	}
	return nil
}
