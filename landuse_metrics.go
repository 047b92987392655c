package streetnodes

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// assignment is a premise attached to a network node
type assignment struct {
	class  string
	offset float64
}

// assignPremises attaches every premise to the nearest node not farther than maxAssignDistance.
// Premises without class or without close node are skipped
func (analyzer *Analyzer) assignPremises(network *Network, premises *Premises, landUseColumn string) ([][]assignment, error) {
	labels, err := premises.Labels(landUseColumn)
	if err != nil {
		return nil, err
	}
	assigned := make([][]assignment, network.Len())
	skipped := 0
	buf := make([]orb.Pointer, 0, 1)
	for i, pt := range premises.Points {
		if labels[i] == "" {
			skipped++
			continue
		}
		buf = network.tree.KNearest(buf[:0], pt, 1, analyzer.maxAssignDistance)
		if len(buf) == 0 {
			skipped++
			continue
		}
		node := buf[0].(networkPoint)
		assigned[node.idx] = append(assigned[node.idx], assignment{
			class:  labels[i],
			offset: planar.Distance(pt, node.point),
		})
	}
	analyzer.logger.Debug("Premises assigned", zap.Int("premises", premises.Len()), zap.Int("skipped", skipped))
	return assigned, nil
}

// landUseVisit calls visit for every premise reachable from node i within maxDistance
func (analyzer *Analyzer) landUseVisit(network *Network, assigned [][]assignment, i int, maxDistance float64, angular bool, visit func(a assignment, distance float64)) {
	for _, a := range assigned[i] {
		if a.offset <= maxDistance {
			visit(a, a.offset)
		}
	}
	for _, r := range network.reach(i, maxDistance, angular) {
		for _, a := range assigned[r.idx] {
			distance := r.distance + a.offset
			if distance <= maxDistance {
				visit(a, distance)
			}
		}
	}
}

func landUsePath(angular bool) PathKind {
	if angular {
		return PATH_SIMPLEST
	}
	return PATH_SHORTEST
}

// ComputeMixedUses computes distance weighted Hill numbers (q0, q1, q2) of land use classes. Non-live rows hold NaN
func (analyzer *Analyzer) ComputeMixedUses(ctx context.Context, structure NetworkStructure, table *NodeTable, premises *Premises, landUseColumn string, distances []int, angular bool) (*MetricResult, error) {
	network, err := asNetwork(structure)
	if err != nil {
		return nil, err
	}
	if err := alignedKeys(table, network.NodeKeys()); err != nil {
		return nil, err
	}
	assigned, err := analyzer.assignPremises(network, premises, landUseColumn)
	if err != nil {
		return nil, errors.Wrap(err, "Can't assign premises")
	}
	orders := []string{"hill_q0", "hill_q1", "hill_q2"}
	values := make([][][]float64, len(orders))
	for q := range orders {
		values[q] = make([][]float64, len(distances))
		for d := range distances {
			values[q][d] = nanVector(network.Len())
		}
	}
	upper := float64(maxDistance(distances))
	for i := 0; i < network.Len(); i++ {
		if !network.live[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abundances := make([]map[string]float64, len(distances))
		for d := range distances {
			abundances[d] = make(map[string]float64)
		}
		analyzer.landUseVisit(network, assigned, i, upper, angular, func(a assignment, distance float64) {
			for d, threshold := range distances {
				if distance > float64(threshold) {
					continue
				}
				abundances[d][a.class] += math.Exp(-4.0 / float64(threshold) * distance)
			}
		})
		for d := range distances {
			q0, q1, q2 := hillNumbers(abundances[d])
			values[0][d][i] = q0
			values[1][d][i] = q1
			values[2][d][i] = q2
		}
	}
	result := &MetricResult{NodeKeys: network.keys}
	for q, stem := range orders {
		for d, distance := range distances {
			result.Metrics = append(result.Metrics, Metric{
				Key:    MetricKey{Stem: stem, Distance: distance, Path: landUsePath(angular), Suffix: "wt"},
				Values: values[q][d],
			})
		}
	}
	return result, nil
}

// hillNumbers returns Hill diversity of orders 0, 1 and 2 for class abundances
func hillNumbers(abundances map[string]float64) (float64, float64, float64) {
	total := 0.0
	richness := 0.0
	for _, a := range abundances {
		if a > 0 {
			total += a
			richness++
		}
	}
	if total == 0 {
		return 0, 0, 0
	}
	entropy := 0.0
	simpson := 0.0
	for _, a := range abundances {
		if a <= 0 {
			continue
		}
		p := a / total
		entropy -= p * math.Log(p)
		simpson += p * p
	}
	return richness, math.Exp(entropy), 1 / simpson
}

// ComputeAccessibilities computes per land use key: count ('nw') and distance weighted sum ('wt') per distance threshold
// and distance to the nearest premise within the largest threshold ('<key>_nearest_max').
// Classes outside of keys are ignored. Non-live rows hold NaN.
func (analyzer *Analyzer) ComputeAccessibilities(ctx context.Context, structure NetworkStructure, table *NodeTable, premises *Premises, landUseColumn string, keys []string, distances []int, angular bool) (*MetricResult, error) {
	network, err := asNetwork(structure)
	if err != nil {
		return nil, err
	}
	if err := alignedKeys(table, network.NodeKeys()); err != nil {
		return nil, err
	}
	assigned, err := analyzer.assignPremises(network, premises, landUseColumn)
	if err != nil {
		return nil, errors.Wrap(err, "Can't assign premises")
	}
	positions := make(map[string]int, len(keys))
	for k, key := range keys {
		positions[key] = k
	}
	counts := make([][][]float64, len(keys))
	weighted := make([][][]float64, len(keys))
	nearest := make([][]float64, len(keys))
	for k := range keys {
		counts[k] = make([][]float64, len(distances))
		weighted[k] = make([][]float64, len(distances))
		for d := range distances {
			counts[k][d] = nanVector(network.Len())
			weighted[k][d] = nanVector(network.Len())
		}
		nearest[k] = nanVector(network.Len())
	}
	upper := maxDistance(distances)
	for i := 0; i < network.Len(); i++ {
		if !network.live[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for k := range keys {
			for d := range distances {
				counts[k][d][i] = 0
				weighted[k][d][i] = 0
			}
		}
		analyzer.landUseVisit(network, assigned, i, float64(upper), angular, func(a assignment, distance float64) {
			k, ok := positions[a.class]
			if !ok {
				return
			}
			for d, threshold := range distances {
				if distance > float64(threshold) {
					continue
				}
				counts[k][d][i]++
				weighted[k][d][i] += math.Exp(-4.0 / float64(threshold) * distance)
			}
			if math.IsNaN(nearest[k][i]) || distance < nearest[k][i] {
				nearest[k][i] = distance
			}
		})
	}
	result := &MetricResult{NodeKeys: network.keys}
	path := landUsePath(angular)
	for k, key := range keys {
		for d, distance := range distances {
			result.Metrics = append(result.Metrics,
				Metric{Key: MetricKey{Stem: key, Distance: distance, Path: path, Suffix: "nw"}, Values: counts[k][d]},
				Metric{Key: MetricKey{Stem: key, Distance: distance, Path: path, Suffix: "wt"}, Values: weighted[k][d]},
			)
		}
		result.Metrics = append(result.Metrics, Metric{
			Key:    MetricKey{Stem: key + "_nearest_max", Distance: upper, Path: path},
			Values: nearest[k],
		})
	}
	return result, nil
}
