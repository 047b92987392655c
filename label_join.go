package streetnodes

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// LabelJoiner assigns district and neighbourhood of the containing boundary polygon to every node
type LabelJoiner struct {
	boundaries BoundarySet
	logger     *zap.Logger
}

// NewLabelJoiner returns joiner over given boundary polygons. Order of polygons is the tie-break order
func NewLabelJoiner(boundaries BoundarySet, options ...func(*LabelJoiner)) *LabelJoiner {
	joiner := &LabelJoiner{
		boundaries: boundaries,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(joiner)
	}
	return joiner
}

func WithJoinerLogger(logger *zap.Logger) func(*LabelJoiner) {
	return func(joiner *LabelJoiner) {
		joiner.logger = logger
	}
}

// Join returns new table with 'district' and 'neighb' columns. Nodes outside every polygon get absent labels
func (joiner *LabelJoiner) Join(table *NodeTable) (*NodeTable, error) {
	districts := make([]string, table.Len())
	neighbourhoods := make([]string, table.Len())
	districtValid := make([]bool, table.Len())
	neighbourhoodValid := make([]bool, table.Len())
	unmatched := 0
	for i := 0; i < table.Len(); i++ {
		pt, err := representativePoint(table, i)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't find representative point for '%s'", table.Keys()[i])
		}
		idx := joiner.boundaries.Locate(pt)
		if idx < 0 {
			unmatched++
			continue
		}
		unit := joiner.boundaries[idx]
		districts[i] = unit.District
		neighbourhoods[i] = unit.Neighbourhood
		districtValid[i] = !unit.DistrictNull
		neighbourhoodValid[i] = !unit.NeighbourhoodNull
	}
	joiner.logger.Debug("Labels joined", zap.Int("nodes", table.Len()), zap.Int("unmatched", unmatched))
	return table.WithColumns(
		NewNullableStringColumn(FIELD_DISTRICT, districts, districtValid),
		NewNullableStringColumn(FIELD_NEIGHBOURHOOD, neighbourhoods, neighbourhoodValid),
	)
}

// representativePoint returns node point, or centroid of the primal line when line is the active geometry
func representativePoint(table *NodeTable, i int) (orb.Point, error) {
	if table.ActiveGeometry() != GEOMETRY_LINE {
		return table.Points()[i], nil
	}
	return lineCentroid(table.Lines()[i])
}

// lineCentroid returns length weighted centroid of given line
func lineCentroid(line orb.LineString) (orb.Point, error) {
	flat := make([]float64, 0, len(line)*2)
	for _, pt := range line {
		flat = append(flat, pt.X(), pt.Y())
	}
	centroid, err := xy.Centroid(geom.NewLineStringFlat(geom.XY, flat))
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{centroid.X(), centroid.Y()}, nil
}
