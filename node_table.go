package streetnodes

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// GeometryKind is kind of the active geometry column of a table
type GeometryKind uint16

const (
	GEOMETRY_POINT = GeometryKind(iota + 1)
	GEOMETRY_LINE
)

func (iotaIdx GeometryKind) String() string {
	return [...]string{"point", "line"}[iotaIdx-1]
}

// ParseGeometryKind returns geometry kind by its name
func ParseGeometryKind(name string) (GeometryKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case GEOMETRY_POINT.String():
		return GEOMETRY_POINT, nil
	case "", GEOMETRY_LINE.String():
		return GEOMETRY_LINE, nil
	default:
		return 0, errors.Wrapf(ErrInvalidConfig, "unknown geometry kind '%s'", name)
	}
}

// NodeTable is an accumulator of dual node attributes: one row per dual node (live or not).
// Every stage consumes a table and returns a new one with extra columns; tables are never mutated in place.
type NodeTable struct {
	keys    []string
	points  []orb.Point
	lines   []orb.LineString
	active  GeometryKind
	columns []Column
	names   map[string]int
}

// NewNodeTable creates table with one row per dual node in graph order. Active geometry is the node point
func NewNodeTable(dual *DualGraph) *NodeTable {
	table := &NodeTable{
		keys:   make([]string, len(dual.Nodes)),
		points: make([]orb.Point, len(dual.Nodes)),
		active: GEOMETRY_POINT,
		names:  make(map[string]int),
	}
	for i, node := range dual.Nodes {
		table.keys[i] = node.Key
		table.points[i] = node.Point
	}
	return table
}

func (table *NodeTable) clone() *NodeTable {
	names := make(map[string]int, len(table.names))
	for k, v := range table.names {
		names[k] = v
	}
	return &NodeTable{
		keys:    table.keys,
		points:  table.points,
		lines:   table.lines,
		active:  table.active,
		columns: append([]Column{}, table.columns...),
		names:   names,
	}
}

// Len returns number of rows
func (table *NodeTable) Len() int {
	return len(table.keys)
}

// Keys returns dual node keys in row order. Must not be modified
func (table *NodeTable) Keys() []string {
	return table.keys
}

// Points returns representative points in row order. Must not be modified
func (table *NodeTable) Points() []orb.Point {
	return table.points
}

// Lines returns attached primal geometries in row order (nil if not attached yet). Must not be modified
func (table *NodeTable) Lines() []orb.LineString {
	return table.lines
}

// ActiveGeometry returns kind of the active geometry
func (table *NodeTable) ActiveGeometry() GeometryKind {
	return table.active
}

// Geometry returns active geometry of i-th row
func (table *NodeTable) Geometry(i int) orb.Geometry {
	if table.active == GEOMETRY_LINE {
		return table.lines[i]
	}
	return table.points[i]
}

// Column returns column by its name
func (table *NodeTable) Column(name string) (Column, bool) {
	idx, ok := table.names[name]
	if !ok {
		return Column{}, false
	}
	return table.columns[idx], true
}

// HasColumn checks if column with given name exists
func (table *NodeTable) HasColumn(name string) bool {
	_, ok := table.names[name]
	return ok
}

// Columns returns attribute columns in insertion order. Must not be modified
func (table *NodeTable) Columns() []Column {
	return table.columns
}

// ColumnNames returns names of attribute columns in insertion order
func (table *NodeTable) ColumnNames() []string {
	names := make([]string, len(table.columns))
	for i := range table.columns {
		names[i] = table.columns[i].Name
	}
	return names
}

// WithColumns returns new table with extra columns appended.
// Column which already exists leads to ErrSchemaCollision, column of wrong length leads to ErrColumnLength
func (table *NodeTable) WithColumns(columns ...Column) (*NodeTable, error) {
	out := table.clone()
	for _, column := range columns {
		if _, ok := out.names[column.Name]; ok {
			return nil, errors.Wrapf(ErrSchemaCollision, "column '%s'", column.Name)
		}
		if column.Len() != table.Len() {
			return nil, errors.Wrapf(ErrColumnLength, "column '%s' has %d values, table has %d rows", column.Name, column.Len(), table.Len())
		}
		out.names[column.Name] = len(out.columns)
		out.columns = append(out.columns, column)
	}
	return out, nil
}

// WithLines returns new table with primal geometries attached to rows
func (table *NodeTable) WithLines(lines []orb.LineString) (*NodeTable, error) {
	if len(lines) != table.Len() {
		return nil, errors.Wrapf(ErrColumnLength, "%d lines for %d rows", len(lines), table.Len())
	}
	out := table.clone()
	out.lines = lines
	return out, nil
}

// WithActiveGeometry returns new table with switched active geometry
func (table *NodeTable) WithActiveGeometry(kind GeometryKind) (*NodeTable, error) {
	if kind == GEOMETRY_LINE && table.lines == nil {
		return nil, errors.Wrap(ErrMissingReference, "Can't activate line geometry: lines are not attached")
	}
	out := table.clone()
	out.active = kind
	return out, nil
}

// Filter returns new table with rows where keep[i] is true. Relative order is retained
func (table *NodeTable) Filter(keep []bool) (*NodeTable, error) {
	if len(keep) != table.Len() {
		return nil, errors.Wrapf(ErrColumnLength, "%d flags for %d rows", len(keep), table.Len())
	}
	out := table.clone()
	out.keys = []string{}
	out.points = []orb.Point{}
	if table.lines != nil {
		out.lines = []orb.LineString{}
	}
	for i := range keep {
		if !keep[i] {
			continue
		}
		out.keys = append(out.keys, table.keys[i])
		out.points = append(out.points, table.points[i])
		if table.lines != nil {
			out.lines = append(out.lines, table.lines[i])
		}
	}
	for i := range out.columns {
		out.columns[i] = out.columns[i].filter(keep)
	}
	return out, nil
}

// liveFlags returns values of 'live' column. When column does not exist every row is live
func (table *NodeTable) liveFlags() []bool {
	if column, ok := table.Column(FIELD_LIVE); ok && column.Kind == COLUMN_BOOL {
		return column.Bools
	}
	flags := make([]bool, table.Len())
	for i := range flags {
		flags[i] = true
	}
	return flags
}

const (
	FIELD_LIVE          = "live"
	FIELD_WEIGHT        = "weight"
	FIELD_BEARING       = "bearing"
	FIELD_DISTRICT      = "district"
	FIELD_NEIGHBOURHOOD = "neighb"
	FIELD_POP_DENS      = "pop_dens"
	FIELD_POINT_GEOM    = "point_geom"
	FIELD_NODE_KEY      = "node_key"
)
