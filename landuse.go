package streetnodes

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// Premises is a set of land use points with two-level classification (section, division).
// Index holds row position in the source layer; ID is its string form once translated.
type Premises struct {
	IDs     []string
	Index   []int
	Points  []orb.Point
	Columns []Column
}

// NewPremises creates premises set where every record's source index is its position
func NewPremises(points []orb.Point, columns []Column) (*Premises, error) {
	premises := &Premises{
		IDs:     make([]string, len(points)),
		Index:   make([]int, len(points)),
		Points:  points,
		Columns: columns,
	}
	for i := range points {
		premises.Index[i] = i
	}
	for _, column := range columns {
		if column.Len() != len(points) {
			return nil, errors.Wrapf(ErrColumnLength, "premises column '%s' has %d values for %d points", column.Name, column.Len(), len(points))
		}
	}
	return premises, nil
}

// Len returns number of records
func (premises *Premises) Len() int {
	return len(premises.Points)
}

// Column returns column by its name
func (premises *Premises) Column(name string) (Column, bool) {
	for _, column := range premises.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

// Labels returns values of given column as strings. Absent values are empty strings
func (premises *Premises) Labels(name string) ([]string, error) {
	column, ok := premises.Column(name)
	if !ok {
		return nil, errors.Errorf("premises have no column '%s'", name)
	}
	labels := make([]string, premises.Len())
	for i := range labels {
		if v := column.Value(i); v != nil {
			labels[i] = valueString(v)
		}
	}
	return labels, nil
}

// LandUseTranslator normalises premises schema, translates categories and drops invalid records
type LandUseTranslator struct {
	schema  *LandUseSchema
	markers []string
	fold    cases.Caser
	logger  *zap.Logger
}

// NewLandUseTranslator returns translator for given schema
func NewLandUseTranslator(schema *LandUseSchema, options ...func(*LandUseTranslator)) *LandUseTranslator {
	translator := &LandUseTranslator{
		schema: schema,
		fold:   cases.Fold(),
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(translator)
	}
	translator.markers = make([]string, 0, len(schema.InvalidMarkers))
	for _, marker := range schema.InvalidMarkers {
		translator.markers = append(translator.markers, translator.fold.String(marker))
	}
	return translator
}

func WithTranslatorLogger(logger *zap.Logger) func(*LandUseTranslator) {
	return func(translator *LandUseTranslator) {
		translator.logger = logger
	}
}

// Translate returns cleaned premises. Source set is not modified.
// Columns are renamed first, then every record gets ID from its source index, then both classification levels
// are translated (unmapped codes pass through). Records whose section or division contains an invalid marker are dropped.
func (translator *LandUseTranslator) Translate(premises *Premises) (*Premises, error) {
	columns := make([]Column, len(premises.Columns))
	seen := make(map[string]struct{}, len(premises.Columns))
	for i, column := range premises.Columns {
		if target, ok := translator.schema.Columns[column.Name]; ok {
			column.Name = target
		}
		if _, ok := seen[column.Name]; ok {
			return nil, errors.Wrapf(ErrSchemaCollision, "premises column '%s' appears twice after rename", column.Name)
		}
		seen[column.Name] = struct{}{}
		columns[i] = column
	}
	out := &Premises{
		IDs:     make([]string, premises.Len()),
		Index:   premises.Index,
		Points:  premises.Points,
		Columns: columns,
	}
	for i, idx := range premises.Index {
		out.IDs[i] = strconv.Itoa(idx)
	}
	for i := range out.Columns {
		switch out.Columns[i].Name {
		case translator.schema.SectionColumn:
			out.Columns[i] = translateColumn(out.Columns[i], translator.schema.Sections)
		case translator.schema.DivisionColumn:
			out.Columns[i] = translateColumn(out.Columns[i], translator.schema.Divisions)
		}
	}
	sections, _ := out.Column(translator.schema.SectionColumn)
	divisions, _ := out.Column(translator.schema.DivisionColumn)
	keep := make([]bool, out.Len())
	dropped := 0
	for i := range keep {
		keep[i] = !translator.invalid(sections, i) && !translator.invalid(divisions, i)
		if !keep[i] {
			dropped++
		}
	}
	translator.logger.Debug("Premises translated", zap.Int("records", out.Len()), zap.Int("dropped", dropped))
	return out.filter(keep), nil
}

// invalid checks if i-th value of column contains any invalid marker (case-insensitive). Absent values are valid
func (translator *LandUseTranslator) invalid(column Column, i int) bool {
	if column.Kind != COLUMN_STRING || column.IsNull(i) {
		return false
	}
	folded := translator.fold.String(column.Strings[i])
	for _, marker := range translator.markers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

// translateColumn maps string values through lookup. Unmapped values pass through
func translateColumn(column Column, lookup map[string]string) Column {
	if column.Kind != COLUMN_STRING {
		return column
	}
	values := make([]string, len(column.Strings))
	for i, v := range column.Strings {
		if target, ok := lookup[v]; ok {
			values[i] = target
			continue
		}
		values[i] = v
	}
	column.Strings = values
	return column
}

// filter returns new premises with records where keep[i] is true. Relative order is retained
func (premises *Premises) filter(keep []bool) *Premises {
	out := &Premises{
		IDs:     []string{},
		Index:   []int{},
		Points:  []orb.Point{},
		Columns: make([]Column, len(premises.Columns)),
	}
	for i := range keep {
		if !keep[i] {
			continue
		}
		out.IDs = append(out.IDs, premises.IDs[i])
		out.Index = append(out.Index, premises.Index[i])
		out.Points = append(out.Points, premises.Points[i])
	}
	for i := range premises.Columns {
		out.Columns[i] = premises.Columns[i].filter(keep)
	}
	return out
}

const (
	FIELD_PREMISE_ID = "premise_id"
)

// Dataset returns premises as point dataset keyed by premise ID
func (premises *Premises) Dataset() *Dataset {
	dataset := &Dataset{
		KeyName:      FIELD_PREMISE_ID,
		Keys:         premises.IDs,
		GeometryKind: GEOMETRY_POINT,
		Geometries:   make([]orb.Geometry, premises.Len()),
		Columns:      premises.Columns,
	}
	for i, pt := range premises.Points {
		dataset.Geometries[i] = pt
	}
	return dataset
}
