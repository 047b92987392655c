package streetnodes

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// GeometryEnricher derives liveness, weight and bearing of every dual node and attaches primal geometry
type GeometryEnricher struct {
	boundary *StudyBoundary
	logger   *zap.Logger
}

// NewGeometryEnricher returns enricher for given study boundary
func NewGeometryEnricher(boundary *StudyBoundary, options ...func(*GeometryEnricher)) *GeometryEnricher {
	enricher := &GeometryEnricher{
		boundary: boundary,
		logger:   zap.NewNop(),
	}
	for _, option := range options {
		option(enricher)
	}
	return enricher
}

func WithEnricherLogger(logger *zap.Logger) func(*GeometryEnricher) {
	return func(enricher *GeometryEnricher) {
		enricher.logger = logger
	}
}

// Enrich returns new table with 'live', 'weight' and 'bearing' columns and primal lines attached.
// Liveness starts from dual node's own flag and can only be revoked.
func (enricher *GeometryEnricher) Enrich(dual *DualGraph, table *NodeTable) (*NodeTable, error) {
	if table.Len() != len(dual.Nodes) {
		return nil, errors.Wrapf(ErrMissingReference, "table has %d rows while dual graph has %d nodes", table.Len(), len(dual.Nodes))
	}
	live := make([]bool, table.Len())
	weight := make([]float64, table.Len())
	bearing := make([]float64, table.Len())
	lines := make([]orb.LineString, table.Len())
	points := table.Points()
	revoked := 0
	for i, node := range dual.Nodes {
		if table.Keys()[i] != node.Key {
			return nil, errors.Wrapf(ErrMissingReference, "row %d holds '%s' while dual node is '%s'", i, table.Keys()[i], node.Key)
		}
		edge, ok := dual.Primal.Edge(node.Edge)
		if !ok {
			return nil, errors.Wrapf(ErrMissingReference, "dual node '%s' points to primal edge %d", node.Key, node.Edge)
		}
		length := edge.Length()
		if length <= 0 {
			return nil, errors.Wrapf(ErrNonPositiveWeight, "primal edge '%s'", edge.Key())
		}
		live[i] = node.Live
		if live[i] && !enricher.boundary.Contains(points[i]) {
			live[i] = false
			revoked++
		}
		lines[i] = edge.Geometry
		weight[i] = length
		bearing[i] = measureBearing(edge.Geometry)
	}
	enricher.logger.Debug("Liveness evaluated", zap.Int("nodes", len(live)), zap.Int("revoked", revoked))
	withLines, err := table.WithLines(lines)
	if err != nil {
		return nil, errors.Wrap(err, "Can't attach primal geometries")
	}
	return withLines.WithColumns(
		NewBoolColumn(FIELD_LIVE, live),
		NewFloatColumn(FIELD_WEIGHT, weight),
		NewFloatColumn(FIELD_BEARING, bearing),
	)
}
