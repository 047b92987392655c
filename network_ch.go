package streetnodes

import (
	"container/heap"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
)

const (
	// angularTiebreak makes metric length the tie-break between equally twisted paths
	angularTiebreak = 1e-6
)

// neighbour is an adjacent node together with the dual edge leading to it
type neighbour struct {
	idx    int
	length float64
	angle  float64
}

// prepareGraphs builds two contraction hierarchies over dual graph:
// metric one (cost is dual edge length) and angular one (cost is turning angle)
func (network *Network) prepareGraphs() error {
	metric := &ch.Graph{}
	angular := &ch.Graph{}
	for i := range network.keys {
		if err := metric.CreateVertex(int64(i)); err != nil {
			return errors.Wrap(err, "Can not create metric vertex")
		}
		if err := angular.CreateVertex(int64(i)); err != nil {
			return errors.Wrap(err, "Can not create angular vertex")
		}
	}
	for source, neighbours := range network.adjacency {
		for _, next := range neighbours {
			angularCost := next.angle + angularTiebreak*next.length
			if err := metric.AddEdge(int64(source), int64(next.idx), next.length); err != nil {
				return errors.Wrap(err, "Can not wrap Source and Target vertices as metric Edge")
			}
			if err := angular.AddEdge(int64(source), int64(next.idx), angularCost); err != nil {
				return errors.Wrap(err, "Can not wrap Source and Target vertices as angular Edge")
			}
		}
	}
	metric.PrepareContractionHierarchies()
	angular.PrepareContractionHierarchies()
	network.metric = metric
	network.angular = angular
	return nil
}

// Route is a path between two dual nodes
type Route struct {
	Distance float64
	Angle    float64
	Keys     []string
}

// Route returns the shortest path between two nodes or, when angular is true, the path with least cumulative turning angle.
// Contraction hierarchies are prepared on the first call.
func (network *Network) Route(from, to string, angular bool) (Route, error) {
	source, ok := network.index[from]
	if !ok {
		return Route{}, errors.Wrapf(ErrMissingReference, "node '%s'", from)
	}
	target, ok := network.index[to]
	if !ok {
		return Route{}, errors.Wrapf(ErrMissingReference, "node '%s'", to)
	}
	network.routing.Do(func() {
		network.routingErr = network.prepareGraphs()
	})
	if network.routingErr != nil {
		return Route{}, errors.Wrap(network.routingErr, "Can't prepare contraction hierarchies")
	}
	graph := network.metric
	if angular {
		graph = network.angular
	}
	cost, path := graph.ShortestPath(int64(source), int64(target))
	if cost < 0 || len(path) == 0 {
		return Route{}, errors.Wrapf(ErrUnreachable, "from '%s' to '%s'", from, to)
	}
	route := Route{
		Keys: make([]string, len(path)),
	}
	route.Distance, route.Angle = network.measurePath(path)
	for k, idx := range path {
		route.Keys[k] = network.keys[idx]
	}
	return route, nil
}

// measurePath returns metric length and cumulative turning angle of given path
func (network *Network) measurePath(path []int64) (float64, float64) {
	distance := 0.0
	angle := 0.0
	for k := 1; k < len(path); k++ {
		link := network.links[linkKey(int(path[k-1]), int(path[k]))]
		distance += link.Length
		angle += link.Angle
	}
	return distance, angle
}

// reached is a node reachable from a source within distance threshold
type reached struct {
	idx      int
	distance float64
	angle    float64
	path     []int64
}

// searchLabel is a queued node with its path cost
type searchLabel struct {
	idx  int
	cost float64
}

type searchQueue []searchLabel

func (q searchQueue) Len() int            { return len(q) }
func (q searchQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q searchQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *searchQueue) Push(x interface{}) { *q = append(*q, x.(searchLabel)) }
func (q *searchQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// reach returns nodes reachable from given node with metric path length not exceeding maxDistance.
// When angular is true, paths minimise cumulative turning angle instead of length.
// Labels are never expanded beyond maxDistance.
func (network *Network) reach(idx int, maxDistance float64, angular bool) []reached {
	cost := map[int]float64{idx: 0}
	distance := map[int]float64{idx: 0}
	angle := map[int]float64{idx: 0}
	parent := map[int]int{}
	settled := map[int][]int64{}

	out := []reached{}
	queue := &searchQueue{{idx: idx}}
	for queue.Len() > 0 {
		current := heap.Pop(queue).(searchLabel)
		if _, ok := settled[current.idx]; ok {
			continue
		}
		if current.cost > cost[current.idx] {
			continue
		}
		path := []int64{int64(current.idx)}
		if current.idx != idx {
			prefix := settled[parent[current.idx]]
			path = make([]int64, len(prefix)+1)
			copy(path, prefix)
			path[len(prefix)] = int64(current.idx)
			out = append(out, reached{
				idx:      current.idx,
				distance: distance[current.idx],
				angle:    angle[current.idx],
				path:     path,
			})
		}
		settled[current.idx] = path

		for _, next := range network.adjacency[current.idx] {
			if _, ok := settled[next.idx]; ok {
				continue
			}
			d := distance[current.idx] + next.length
			if d > maxDistance {
				continue
			}
			c := d
			if angular {
				c = cost[current.idx] + next.angle + angularTiebreak*next.length
			}
			if known, ok := cost[next.idx]; ok && known <= c {
				continue
			}
			cost[next.idx] = c
			distance[next.idx] = d
			angle[next.idx] = angle[current.idx] + next.angle
			parent[next.idx] = current.idx
			heap.Push(queue, searchLabel{idx: next.idx, cost: c})
		}
	}
	return out
}
