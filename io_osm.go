package streetnodes

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

// OSMScanner is common interface of XML and PBF scanners
type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// streetWay is a way accepted by street filter
type streetWay struct {
	ID      osm.WayID
	Nodes   []osm.NodeID
	Highway string
	Name    string
}

func newOSMScanner(fileName string, file io.Reader) (OSMScanner, error) {
	name := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(name, ".pbf"):
		return osmpbf.New(context.Background(), file, 4), nil
	case strings.HasSuffix(name, ".osm"), strings.HasSuffix(name, ".xml"):
		return osmxml.New(context.Background(), file), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "file extension '%s' for file '%s'", filepath.Ext(fileName), fileName)
	}
}

// ReadOSMStreets reads OSM ways with accepted 'highway' tag as street segments projected to Web Mercator.
// Ways are split at nodes shared with other ways so every segment ends at junction or dead end.
// Web Mercator units are not meters: lengths grow by 1/cos(latitude), see NetworkConfig.
// Columns: osm_id, highway, name
func ReadOSMStreets(fileName string, types StreetTypes) (*Layer, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "File open")
	}
	defer file.Close()

	/* Process ways */
	ways := []streetWay{}
	nodesSeen := make(map[osm.NodeID]struct{})
	{
		scannerWays, err := newOSMScanner(fileName, file)
		if err != nil {
			return nil, err
		}
		defer scannerWays.Close()
		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			highway := way.Tags.Find("highway")
			if !types.Accepts(highway) {
				continue
			}
			if way.Tags.Find("area") == "yes" {
				continue
			}
			prepared := streetWay{
				ID:      way.ID,
				Nodes:   make([]osm.NodeID, 0, len(way.Nodes)),
				Highway: highway,
				Name:    way.Tags.Find("name"),
			}
			for _, node := range way.Nodes {
				nodesSeen[node.ID] = struct{}{}
				prepared.Nodes = append(prepared.Nodes, node.ID)
			}
			ways = append(ways, prepared)
		}
		if err := scannerWays.Err(); err != nil {
			return nil, errors.Wrap(err, "Scanner error on Ways")
		}
	}

	// Seek file to start
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}

	/* Process nodes */
	points := make(map[osm.NodeID]orb.Point, len(nodesSeen))
	{
		scannerNodes, err := newOSMScanner(fileName, file)
		if err != nil {
			return nil, err
		}
		defer scannerNodes.Close()
		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			if _, ok := nodesSeen[node.ID]; ok {
				delete(nodesSeen, node.ID)
				points[node.ID] = pointToEuclidean(orb.Point{node.Lon, node.Lat})
			}
		}
		if err := scannerNodes.Err(); err != nil {
			return nil, errors.Wrap(err, "Scanner error on Nodes")
		}
	}

	/* Count node use cases: endpoints count twice so they always split */
	useCount := make(map[osm.NodeID]int, len(points))
	for _, way := range ways {
		for i, id := range way.Nodes {
			if _, ok := points[id]; !ok {
				return nil, errors.Wrapf(ErrMissingReference, "way %d refers to missing node %d", way.ID, id)
			}
			if i == 0 || i == len(way.Nodes)-1 {
				useCount[id] += 2
			} else {
				useCount[id]++
			}
		}
	}

	layer := &Layer{}
	ids := []int64{}
	highways := []string{}
	names := []string{}
	for _, way := range ways {
		geometry := orb.LineString{}
		for i, id := range way.Nodes {
			geometry = append(geometry, points[id])
			if i == 0 || useCount[id] < 2 {
				continue
			}
			if len(geometry) > 1 {
				layer.Geometries = append(layer.Geometries, geometry)
				ids = append(ids, int64(way.ID))
				highways = append(highways, way.Highway)
				names = append(names, way.Name)
			}
			geometry = orb.LineString{points[id]}
		}
	}
	layer.Columns = []Column{
		NewIntColumn("osm_id", ids),
		NewStringColumn("highway", highways),
		NewStringColumn("name", names),
	}
	return layer, nil
}
