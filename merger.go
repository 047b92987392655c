package streetnodes

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// CENTRALITY_DISTANCES are default thresholds for network centralities
	CENTRALITY_DISTANCES = []int{200, 500, 1000, 2000, 5000, 10000}
	// LANDUSE_DISTANCES are default thresholds for land use metrics
	LANDUSE_DISTANCES = []int{100, 200, 500, 1000, 2000}
	// ACCESSIBILITY_KEYS are default land use categories for accessibilities
	ACCESSIBILITY_KEYS = []string{"food_bev", "creat_entert", "retail", "services", "education", "accommod", "sports_rec", "health"}
)

// CentralityPass is a single centrality invocation
type CentralityPass struct {
	Path     PathKind
	Weighted bool
}

// MergePlan selects invocations of the merger
type MergePlan struct {
	CentralityDistances []int
	CentralityPasses    []CentralityPass
	LandUseDistances    []int
	LandUseColumn       string
	// LandUsePaths are path semantics for mixed uses and accessibilities. Only shortest and simplest are meaningful
	LandUsePaths      []PathKind
	MixedUses         bool
	Accessibility     bool
	AccessibilityKeys []string
}

// DefaultMergePlan returns plan reproducing the full metric set: length-weighted and unweighted
// shortest and simplest centralities, segment centrality, mixed uses and accessibilities
func DefaultMergePlan() MergePlan {
	return MergePlan{
		CentralityDistances: append([]int{}, CENTRALITY_DISTANCES...),
		CentralityPasses: []CentralityPass{
			{Path: PATH_SHORTEST, Weighted: true},
			{Path: PATH_SIMPLEST, Weighted: true},
			{Path: PATH_SHORTEST},
			{Path: PATH_SIMPLEST},
			{Path: PATH_SEGMENT},
		},
		LandUseDistances:  append([]int{}, LANDUSE_DISTANCES...),
		LandUseColumn:     DEFAULT_DIVISION_COLUMN,
		LandUsePaths:      []PathKind{PATH_SHORTEST, PATH_SIMPLEST},
		MixedUses:         true,
		Accessibility:     true,
		AccessibilityKeys: append([]string{}, ACCESSIBILITY_KEYS...),
	}
}

// MetricMerger invokes external network computations in fixed order and merges their results into node table
type MetricMerger struct {
	centrality CentralityComputer
	landUse    LandUseComputer
	logger     *zap.Logger
}

// NewMetricMerger returns merger over given computers
func NewMetricMerger(centrality CentralityComputer, landUse LandUseComputer, options ...func(*MetricMerger)) *MetricMerger {
	merger := &MetricMerger{
		centrality: centrality,
		landUse:    landUse,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(merger)
	}
	return merger
}

func WithMergerLogger(logger *zap.Logger) func(*MetricMerger) {
	return func(merger *MetricMerger) {
		merger.logger = logger
	}
}

// Merge returns table with every requested metric column.
// Weighted centrality passes run first and their results are marked as length-weighted before any unweighted pass runs.
// Land use metrics use the unweighted structure.
func (merger *MetricMerger) Merge(ctx context.Context, table *NodeTable, premises *Premises, weighted, unweighted NetworkStructure, plan MergePlan) (*NodeTable, error) {
	centralityDistances, err := normaliseDistances(plan.CentralityDistances)
	if err != nil {
		return nil, errors.Wrap(err, "Centrality distances")
	}
	landUseDistances, err := normaliseDistances(plan.LandUseDistances)
	if err != nil {
		return nil, errors.Wrap(err, "Land use distances")
	}

	accessibilityKeys := dedupeKeys(plan.AccessibilityKeys)

	ordered := make([]CentralityPass, 0, len(plan.CentralityPasses))
	for _, pass := range plan.CentralityPasses {
		if pass.Weighted {
			ordered = append(ordered, pass)
		}
	}
	for _, pass := range plan.CentralityPasses {
		if !pass.Weighted {
			ordered = append(ordered, pass)
		}
	}

	for i, pass := range ordered {
		structure := unweighted
		if pass.Weighted {
			structure = weighted
		}
		if structure == nil {
			return nil, errors.Wrapf(ErrMissingReference, "no network structure for %s pass (weighted: %t)", pass.Path, pass.Weighted)
		}
		st := time.Now()
		if err := alignedKeys(table, structure.NodeKeys()); err != nil {
			return nil, errors.Wrap(err, "Network structure is not aligned with node table")
		}
		result, err := merger.centrality.ComputeCentrality(ctx, structure, table, pass.Path, centralityDistances)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't compute %s centrality", pass.Path)
		}
		if pass.Weighted {
			result = result.markLengthWeighted()
		}
		table, err = merge(table, result)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't merge %s centrality (weighted: %t)", pass.Path, pass.Weighted)
		}
		merger.logger.Info("Centrality merged",
			zap.Int("pass", i+1),
			zap.Stringer("path", pass.Path),
			zap.Bool("weighted", pass.Weighted),
			zap.Int("columns", len(result.Metrics)),
			zap.Duration("took", time.Since(st)),
		)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if !plan.MixedUses && !plan.Accessibility {
		return table, nil
	}
	if premises == nil {
		return nil, errors.New("land use metrics are requested but premises are not provided")
	}
	if unweighted == nil {
		return nil, errors.Wrap(ErrMissingReference, "no network structure for land use metrics")
	}
	for _, path := range plan.LandUsePaths {
		angular := path == PATH_SIMPLEST
		if plan.MixedUses {
			if err := alignedKeys(table, unweighted.NodeKeys()); err != nil {
				return nil, errors.Wrap(err, "Network structure is not aligned with node table")
			}
			result, err := merger.landUse.ComputeMixedUses(ctx, unweighted, table, premises, plan.LandUseColumn, landUseDistances, angular)
			if err != nil {
				return nil, errors.Wrap(err, "Can't compute mixed uses")
			}
			table, err = merge(table, result)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't merge mixed uses (angular: %t)", angular)
			}
			merger.logger.Info("Mixed uses merged", zap.Bool("angular", angular), zap.Int("columns", len(result.Metrics)))
		}
		if plan.Accessibility {
			if err := alignedKeys(table, unweighted.NodeKeys()); err != nil {
				return nil, errors.Wrap(err, "Network structure is not aligned with node table")
			}
			result, err := merger.landUse.ComputeAccessibilities(ctx, unweighted, table, premises, plan.LandUseColumn, accessibilityKeys, landUseDistances, angular)
			if err != nil {
				return nil, errors.Wrap(err, "Can't compute accessibilities")
			}
			table, err = merge(table, result)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't merge accessibilities (angular: %t)", angular)
			}
			merger.logger.Info("Accessibilities merged", zap.Bool("angular", angular), zap.Int("columns", len(result.Metrics)))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// merge appends metric columns keyed by MetricKey. Existing column name is a fatal collision
func merge(table *NodeTable, result *MetricResult) (*NodeTable, error) {
	if err := alignedKeys(table, result.NodeKeys); err != nil {
		return nil, errors.Wrap(err, "Metric result is not aligned with node table")
	}
	columns := make([]Column, 0, len(result.Metrics))
	for _, metric := range result.Metrics {
		columns = append(columns, NewFloatColumn(metric.Key.ColumnName(), metric.Values))
	}
	return table.WithColumns(columns...)
}

// dedupeKeys drops repeated keys keeping the first occurrence
func dedupeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
