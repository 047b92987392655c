package streetnodes

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/simplify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	DEFAULT_SIMPLIFY_TOLERANCE = 2.0
)

var (
	// SUBSET_DISTRICTS are districts of the default named subset
	SUBSET_DISTRICTS = []string{"Centro", "Arganzuela", "Retiro", "Salamanca", "Chamartín", "Tetuán", "Chamberí"}
)

// FilterPolicy selects rows of the final dataset
type FilterPolicy uint16

const (
	// FILTER_LIVE_AND_DISTRICT keeps rows which are live and have district
	FILTER_LIVE_AND_DISTRICT = FilterPolicy(iota + 1)
	// FILTER_DISTRICT_ONLY keeps rows which have district regardless of liveness
	FILTER_DISTRICT_ONLY
)

func (iotaIdx FilterPolicy) String() string {
	return [...]string{"live_and_district", "district_only"}[iotaIdx-1]
}

// ParseFilterPolicy returns policy by its name
func ParseFilterPolicy(name string) (FilterPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FILTER_LIVE_AND_DISTRICT.String():
		return FILTER_LIVE_AND_DISTRICT, nil
	case FILTER_DISTRICT_ONLY.String():
		return FILTER_DISTRICT_ONLY, nil
	default:
		return 0, errors.Wrapf(ErrInvalidConfig, "unknown filter policy '%s'", name)
	}
}

// Dataset is an immutable output snapshot: single active geometry plus narrowed attribute columns
type Dataset struct {
	// KeyName is name of the field holding Keys. Empty means 'node_key'
	KeyName      string
	Keys         []string
	GeometryKind GeometryKind
	Geometries   []orb.Geometry
	Columns      []Column
}

func (dataset *Dataset) keyName() string {
	if dataset.KeyName == "" {
		return FIELD_NODE_KEY
	}
	return dataset.KeyName
}

// Len returns number of rows
func (dataset *Dataset) Len() int {
	return len(dataset.Keys)
}

// Column returns column by its name
func (dataset *Dataset) Column(name string) (Column, bool) {
	for _, column := range dataset.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

func (dataset *Dataset) filter(keep []bool) *Dataset {
	out := &Dataset{
		KeyName:      dataset.KeyName,
		Keys:         []string{},
		GeometryKind: dataset.GeometryKind,
		Geometries:   []orb.Geometry{},
		Columns:      make([]Column, len(dataset.Columns)),
	}
	for i := range keep {
		if !keep[i] {
			continue
		}
		out.Keys = append(out.Keys, dataset.Keys[i])
		out.Geometries = append(out.Geometries, dataset.Geometries[i])
	}
	for i := range dataset.Columns {
		out.Columns[i] = dataset.Columns[i].filter(keep)
	}
	return out
}

// DatasetFinalizer filters, simplifies and narrows merged node table into full dataset and named subset
type DatasetFinalizer struct {
	policy    FilterPolicy
	tolerance float64
	subset    map[string]struct{}
	logger    *zap.Logger
}

// NewDatasetFinalizer returns finalizer with default policy, tolerance and subset
func NewDatasetFinalizer(options ...func(*DatasetFinalizer)) *DatasetFinalizer {
	finalizer := &DatasetFinalizer{
		policy:    FILTER_LIVE_AND_DISTRICT,
		tolerance: DEFAULT_SIMPLIFY_TOLERANCE,
		logger:    zap.NewNop(),
	}
	WithSubsetDistricts(SUBSET_DISTRICTS)(finalizer)
	for _, option := range options {
		option(finalizer)
	}
	return finalizer
}

func WithFilterPolicy(policy FilterPolicy) func(*DatasetFinalizer) {
	return func(finalizer *DatasetFinalizer) {
		finalizer.policy = policy
	}
}

func WithSimplifyTolerance(tolerance float64) func(*DatasetFinalizer) {
	return func(finalizer *DatasetFinalizer) {
		finalizer.tolerance = tolerance
	}
}

// WithSubsetDistricts sets district names of the named subset. Names are compared in Unicode NFC form
func WithSubsetDistricts(districts []string) func(*DatasetFinalizer) {
	return func(finalizer *DatasetFinalizer) {
		finalizer.subset = make(map[string]struct{}, len(districts))
		for _, district := range districts {
			finalizer.subset[norm.NFC.String(district)] = struct{}{}
		}
	}
}

func WithFinalizerLogger(logger *zap.Logger) func(*DatasetFinalizer) {
	return func(finalizer *DatasetFinalizer) {
		finalizer.logger = logger
	}
}

// Finalize returns full dataset and its named subset. Relative row order is retained in both
func (finalizer *DatasetFinalizer) Finalize(table *NodeTable) (*Dataset, *Dataset, error) {
	district, ok := table.Column(FIELD_DISTRICT)
	if !ok {
		return nil, nil, errors.Wrap(ErrMissingReference, "node table has no 'district' column")
	}
	live := table.liveFlags()
	keep := make([]bool, table.Len())
	for i := range keep {
		hasDistrict := !district.IsNull(i)
		switch finalizer.policy {
		case FILTER_DISTRICT_ONLY:
			keep[i] = hasDistrict
		default:
			keep[i] = live[i] && hasDistrict
		}
	}
	filtered, err := table.Filter(keep)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't filter node table")
	}

	full := &Dataset{
		Keys:         filtered.Keys(),
		GeometryKind: filtered.ActiveGeometry(),
		Geometries:   make([]orb.Geometry, filtered.Len()),
		Columns:      make([]Column, 0, len(filtered.Columns())+1),
	}
	simplifier := simplify.DouglasPeucker(finalizer.tolerance)
	for i := 0; i < filtered.Len(); i++ {
		switch g := filtered.Geometry(i).(type) {
		case orb.LineString:
			full.Geometries[i] = simplifier.LineString(g.Clone())
		default:
			full.Geometries[i] = g
		}
	}
	for _, column := range filtered.Columns() {
		narrowed, err := narrowColumn(column)
		if err != nil {
			return nil, nil, err
		}
		full.Columns = append(full.Columns, narrowed)
	}
	if full.GeometryKind == GEOMETRY_LINE {
		if filtered.HasColumn(FIELD_POINT_GEOM) {
			return nil, nil, errors.Wrapf(ErrSchemaCollision, "column '%s'", FIELD_POINT_GEOM)
		}
		demoted := make([]string, filtered.Len())
		for i, pt := range filtered.Points() {
			demoted[i] = wkt.MarshalString(pt)
		}
		full.Columns = append(full.Columns, NewStringColumn(FIELD_POINT_GEOM, demoted))
	}

	fullDistrict, _ := full.Column(FIELD_DISTRICT)
	inSubset := make([]bool, full.Len())
	for i := range inSubset {
		if fullDistrict.IsNull(i) {
			continue
		}
		_, inSubset[i] = finalizer.subset[norm.NFC.String(fullDistrict.Strings[i])]
	}
	subset := full.filter(inSubset)
	finalizer.logger.Info("Dataset finalized",
		zap.Stringer("policy", finalizer.policy),
		zap.Int("nodes", table.Len()),
		zap.Int("full", full.Len()),
		zap.Int("subset", subset.Len()),
	)
	return full, subset, nil
}

// narrowColumn converts 64-bit numeric column into 32-bit one. Integers outside of int32 range are an error
func narrowColumn(column Column) (Column, error) {
	switch column.Kind {
	case COLUMN_FLOAT64:
		values := make([]float32, len(column.Floats))
		for i, v := range column.Floats {
			values[i] = float32(v)
		}
		return Column{Name: column.Name, Kind: COLUMN_FLOAT32, Floats32: values, Valid: column.Valid}, nil
	case COLUMN_INT64:
		values := make([]int32, len(column.Ints))
		for i, v := range column.Ints {
			if v > math.MaxInt32 || v < math.MinInt32 {
				return Column{}, errors.Wrapf(ErrNarrowingOverflow, "column '%s' row %d: %d", column.Name, i, v)
			}
			values[i] = int32(v)
		}
		return Column{Name: column.Name, Kind: COLUMN_INT32, Ints32: values, Valid: column.Valid}, nil
	default:
		return column, nil
	}
}
