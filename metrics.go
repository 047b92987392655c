package streetnodes

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	METRIC_PREFIX = "cc_"
)

// PathKind is path semantics of a network computation
type PathKind uint16

const (
	PATH_SHORTEST = PathKind(iota + 1)
	PATH_SIMPLEST
	PATH_SEGMENT
)

func (iotaIdx PathKind) String() string {
	return [...]string{"shortest", "simplest", "segment"}[iotaIdx-1]
}

var (
	// centralityStems are stems which get length-weighted marker after a weighted invocation
	centralityStems = map[string]struct{}{
		"density":          {},
		"beta":             {},
		"farness":          {},
		"harmonic":         {},
		"hillier":          {},
		"betweenness":      {},
		"betweenness_beta": {},
	}
)

// MetricKey identifies one metric column: metric stem, path semantics, weighting, distance threshold and suffix
type MetricKey struct {
	Stem           string
	Distance       int
	Path           PathKind
	LengthWeighted bool
	Suffix         string
}

// ColumnName returns the only column name for the key:
//
//	cc_[lw_][seg_]<stem>_<distance>[_<suffix>][_ang]
func (key MetricKey) ColumnName() string {
	var b strings.Builder
	b.WriteString(METRIC_PREFIX)
	if key.LengthWeighted {
		b.WriteString("lw_")
	}
	if key.Path == PATH_SEGMENT {
		b.WriteString("seg_")
	}
	b.WriteString(key.Stem)
	b.WriteString("_")
	b.WriteString(strconv.Itoa(key.Distance))
	if key.Suffix != "" {
		b.WriteString("_")
		b.WriteString(key.Suffix)
	}
	if key.Path == PATH_SIMPLEST {
		b.WriteString("_ang")
	}
	return b.String()
}

// Metric is a vector of values for a key, aligned with node keys of the result
type Metric struct {
	Key    MetricKey
	Values []float64
}

// MetricResult is an output of one external computation
type MetricResult struct {
	NodeKeys []string
	Metrics  []Metric
}

// markLengthWeighted returns copy of result where every centrality stem carries length-weighted marker
func (result *MetricResult) markLengthWeighted() *MetricResult {
	out := &MetricResult{
		NodeKeys: result.NodeKeys,
		Metrics:  make([]Metric, len(result.Metrics)),
	}
	for i, metric := range result.Metrics {
		if _, ok := centralityStems[metric.Key.Stem]; ok {
			metric.Key.LengthWeighted = true
		}
		out.Metrics[i] = metric
	}
	return out
}

// NetworkStructure is an opaque handle over dual graph prepared for network computations.
// NodeKeys must be aligned with rows of the node table it was built from.
type NetworkStructure interface {
	NodeKeys() []string
}

// CentralityComputer computes network centralities for given path semantics and distances
type CentralityComputer interface {
	ComputeCentrality(ctx context.Context, structure NetworkStructure, table *NodeTable, path PathKind, distances []int) (*MetricResult, error)
}

// LandUseComputer computes mixed uses and accessibilities over cleaned premises
type LandUseComputer interface {
	ComputeMixedUses(ctx context.Context, structure NetworkStructure, table *NodeTable, premises *Premises, landUseColumn string, distances []int, angular bool) (*MetricResult, error)
	ComputeAccessibilities(ctx context.Context, structure NetworkStructure, table *NodeTable, premises *Premises, landUseColumn string, keys []string, distances []int, angular bool) (*MetricResult, error)
}

// normaliseDistances validates thresholds are strictly positive and removes duplicates keeping first occurrence
func normaliseDistances(distances []int) ([]int, error) {
	seen := make(map[int]struct{}, len(distances))
	out := make([]int, 0, len(distances))
	for _, d := range distances {
		if d <= 0 {
			return nil, errors.Wrapf(ErrInvalidDistance, "%d", d)
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// alignedKeys checks that given keys match table rows one by one
func alignedKeys(table *NodeTable, keys []string) error {
	if len(keys) != table.Len() {
		return errors.Wrapf(ErrMissingReference, "%d keys for %d rows", len(keys), table.Len())
	}
	rows := table.Keys()
	for i := range keys {
		if keys[i] != rows[i] {
			return errors.Wrapf(ErrMissingReference, "row %d holds '%s' while '%s' is expected", i, rows[i], keys[i])
		}
	}
	return nil
}
