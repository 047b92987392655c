package streetnodes

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DEFAULT_ANGULAR_SCALING_UNIT   = 90.0
	DEFAULT_FARNESS_SCALING_OFFSET = 0.0
	DEFAULT_MAX_ASSIGN_DISTANCE    = 400.0
	segmentHarmonicMinimalDistance = 1.0
)

// Analyzer is a reference implementation of CentralityComputer and LandUseComputer over Network
type Analyzer struct {
	angularScalingUnit   float64
	farnessScalingOffset float64
	maxAssignDistance    float64
	logger               *zap.Logger
}

// NewAnalyzer returns analyzer with default scaling
func NewAnalyzer(options ...func(*Analyzer)) *Analyzer {
	analyzer := &Analyzer{
		angularScalingUnit:   DEFAULT_ANGULAR_SCALING_UNIT,
		farnessScalingOffset: DEFAULT_FARNESS_SCALING_OFFSET,
		maxAssignDistance:    DEFAULT_MAX_ASSIGN_DISTANCE,
		logger:               zap.NewNop(),
	}
	for _, option := range options {
		option(analyzer)
	}
	return analyzer
}

// WithAngularScalingUnit sets number of degrees which counts as one unit of angular distance
func WithAngularScalingUnit(unit float64) func(*Analyzer) {
	return func(analyzer *Analyzer) {
		analyzer.angularScalingUnit = unit
	}
}

func WithFarnessScalingOffset(offset float64) func(*Analyzer) {
	return func(analyzer *Analyzer) {
		analyzer.farnessScalingOffset = offset
	}
}

// WithMaxAssignDistance sets maximum distance between premise and node it is assigned to
func WithMaxAssignDistance(distance float64) func(*Analyzer) {
	return func(analyzer *Analyzer) {
		analyzer.maxAssignDistance = distance
	}
}

func WithAnalyzerLogger(logger *zap.Logger) func(*Analyzer) {
	return func(analyzer *Analyzer) {
		analyzer.logger = logger
	}
}

func asNetwork(structure NetworkStructure) (*Network, error) {
	network, ok := structure.(*Network)
	if !ok || network == nil {
		return nil, errors.Wrapf(ErrUnsupportedStructure, "%T", structure)
	}
	return network, nil
}

func maxDistance(distances []int) int {
	result := 0
	for _, d := range distances {
		if d > result {
			result = d
		}
	}
	return result
}

// nanVector returns vector of NaN values
func nanVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// centralityAccumulator holds one vector per metric stem and distance
type centralityAccumulator struct {
	stems     []string
	distances []int
	values    map[string][][]float64
}

func newCentralityAccumulator(stems []string, distances []int, live []bool) *centralityAccumulator {
	acc := &centralityAccumulator{
		stems:     stems,
		distances: distances,
		values:    make(map[string][][]float64, len(stems)),
	}
	for _, stem := range stems {
		perDistance := make([][]float64, len(distances))
		for d := range distances {
			vec := nanVector(len(live))
			for i := range live {
				if live[i] {
					vec[i] = 0
				}
			}
			perDistance[d] = vec
		}
		acc.values[stem] = perDistance
	}
	return acc
}

func (acc *centralityAccumulator) add(stem string, d, idx int, v float64) {
	acc.values[stem][d][idx] += v
}

func (acc *centralityAccumulator) result(keys []string, path PathKind) *MetricResult {
	result := &MetricResult{
		NodeKeys: keys,
		Metrics:  make([]Metric, 0, len(acc.stems)*len(acc.distances)),
	}
	for _, stem := range acc.stems {
		for d, distance := range acc.distances {
			result.Metrics = append(result.Metrics, Metric{
				Key:    MetricKey{Stem: stem, Distance: distance, Path: path},
				Values: acc.values[stem][d],
			})
		}
	}
	return result
}

// ComputeCentrality computes centralities of live nodes for given path semantics. Non-live rows hold NaN.
//
//	shortest: density, beta, farness, harmonic, hillier, betweenness, betweenness_beta
//	simplest: density, farness, harmonic, hillier, betweenness
//	segment: density, harmonic, beta, betweenness
//
// Spatial decay is exp(-4*d/D).
func (analyzer *Analyzer) ComputeCentrality(ctx context.Context, structure NetworkStructure, table *NodeTable, path PathKind, distances []int) (*MetricResult, error) {
	network, err := asNetwork(structure)
	if err != nil {
		return nil, err
	}
	if err := alignedKeys(table, network.NodeKeys()); err != nil {
		return nil, err
	}
	st := time.Now()
	var result *MetricResult
	switch path {
	case PATH_SHORTEST:
		result, err = analyzer.shortest(ctx, network, distances)
	case PATH_SIMPLEST:
		result, err = analyzer.simplest(ctx, network, distances)
	case PATH_SEGMENT:
		result, err = analyzer.segment(ctx, network, distances)
	default:
		return nil, errors.Errorf("unknown path kind %d", path)
	}
	if err != nil {
		return nil, err
	}
	analyzer.logger.Debug("Centrality computed", zap.Stringer("path", path), zap.Bool("weighted", network.weighted), zap.Duration("took", time.Since(st)))
	return result, nil
}

func (analyzer *Analyzer) shortest(ctx context.Context, network *Network, distances []int) (*MetricResult, error) {
	acc := newCentralityAccumulator([]string{"density", "beta", "farness", "harmonic", "hillier", "betweenness", "betweenness_beta"}, distances, network.live)
	upper := float64(maxDistance(distances))
	for i := 0; i < network.Len(); i++ {
		if !network.live[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, r := range network.reach(i, upper, false) {
			w := network.weights[r.idx]
			for d, distance := range distances {
				if r.distance > float64(distance) {
					continue
				}
				beta := 4.0 / float64(distance)
				decay := math.Exp(-beta * r.distance)
				acc.add("density", d, i, w)
				acc.add("beta", d, i, w*decay)
				acc.add("farness", d, i, w*r.distance)
				if r.distance > 0 {
					acc.add("harmonic", d, i, w/r.distance)
				}
				for _, via := range r.path[1 : len(r.path)-1] {
					if network.live[via] {
						acc.add("betweenness", d, int(via), w)
						acc.add("betweenness_beta", d, int(via), w*decay)
					}
				}
			}
		}
	}
	fillHillier(acc, network.live)
	return acc.result(network.keys, PATH_SHORTEST), nil
}

func (analyzer *Analyzer) simplest(ctx context.Context, network *Network, distances []int) (*MetricResult, error) {
	acc := newCentralityAccumulator([]string{"density", "farness", "harmonic", "hillier", "betweenness"}, distances, network.live)
	upper := float64(maxDistance(distances))
	for i := 0; i < network.Len(); i++ {
		if !network.live[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, r := range network.reach(i, upper, true) {
			w := network.weights[r.idx]
			angular := r.angle / analyzer.angularScalingUnit
			for d, distance := range distances {
				if r.distance > float64(distance) {
					continue
				}
				acc.add("density", d, i, w)
				acc.add("farness", d, i, w*(angular+analyzer.farnessScalingOffset))
				acc.add("harmonic", d, i, w/(1+angular))
				for _, via := range r.path[1 : len(r.path)-1] {
					if network.live[via] {
						acc.add("betweenness", d, int(via), w)
					}
				}
			}
		}
	}
	fillHillier(acc, network.live)
	return acc.result(network.keys, PATH_SIMPLEST), nil
}

// segment integrates over the length of every reachable segment clipped to the distance threshold
func (analyzer *Analyzer) segment(ctx context.Context, network *Network, distances []int) (*MetricResult, error) {
	acc := newCentralityAccumulator([]string{"density", "harmonic", "beta", "betweenness"}, distances, network.live)
	upper := float64(maxDistance(distances))
	for i := 0; i < network.Len(); i++ {
		if !network.live[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		half := network.lengths[i] / 2
		for d, distance := range distances {
			threshold := float64(distance)
			beta := 4.0 / threshold
			own := math.Min(half, threshold)
			acc.add("density", d, i, 2*own)
			acc.add("harmonic", d, i, 2*segmentHarmonic(0, own))
			acc.add("beta", d, i, 2*segmentBeta(0, own, beta))
		}
		for _, r := range network.reach(i, upper, false) {
			halfTarget := network.lengths[r.idx] / 2
			for d, distance := range distances {
				threshold := float64(distance)
				start := r.distance - halfTarget
				end := math.Min(r.distance+halfTarget, threshold)
				if start >= end {
					continue
				}
				beta := 4.0 / threshold
				acc.add("density", d, i, end-start)
				acc.add("harmonic", d, i, segmentHarmonic(start, end))
				acc.add("beta", d, i, segmentBeta(start, end, beta))
				for _, via := range r.path[1 : len(r.path)-1] {
					if network.live[via] {
						acc.add("betweenness", d, int(via), end-start)
					}
				}
			}
		}
	}
	return acc.result(network.keys, PATH_SEGMENT), nil
}

// segmentHarmonic integrates 1/x over [a, b]. Distances below one map unit count as one
func segmentHarmonic(a, b float64) float64 {
	a = math.Max(a, segmentHarmonicMinimalDistance)
	b = math.Max(b, segmentHarmonicMinimalDistance)
	return math.Log(b) - math.Log(a)
}

// segmentBeta integrates exp(-beta*x) over [a, b]
func segmentBeta(a, b, beta float64) float64 {
	return (math.Exp(-beta*a) - math.Exp(-beta*b)) / beta
}

// fillHillier sets hillier = density^2 / farness
func fillHillier(acc *centralityAccumulator, live []bool) {
	for d := range acc.distances {
		density := acc.values["density"][d]
		farness := acc.values["farness"][d]
		hillier := acc.values["hillier"][d]
		for i := range live {
			if !live[i] {
				continue
			}
			if farness[i] > 0 {
				hillier[i] = density[i] * density[i] / farness[i]
			}
		}
	}
}
