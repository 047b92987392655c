package streetnodes

import (
	"strings"

	"github.com/pkg/errors"
)

// StreetType is a value of OSM 'highway' tag accepted as part of street network
type StreetType uint16

const (
	STREET_MOTORWAY = StreetType(iota + 1)
	STREET_TRUNK
	STREET_PRIMARY
	STREET_SECONDARY
	STREET_TERTIARY
	STREET_UNCLASSIFIED
	STREET_RESIDENTIAL
	STREET_LIVING_STREET
	STREET_SERVICE
	STREET_PEDESTRIAN
	STREET_FOOTWAY
	STREET_STEPS
	STREET_PATH
	STREET_CYCLEWAY
	STREET_TRACK
)

func (iotaIdx StreetType) String() string {
	return [...]string{"motorway", "trunk", "primary", "secondary", "tertiary", "unclassified", "residential", "living_street", "service", "pedestrian", "footway", "steps", "path", "cycleway", "track"}[iotaIdx-1]
}

var (
	streetTypes = map[string]StreetType{
		"motorway":      STREET_MOTORWAY,
		"trunk":         STREET_TRUNK,
		"primary":       STREET_PRIMARY,
		"secondary":     STREET_SECONDARY,
		"tertiary":      STREET_TERTIARY,
		"unclassified":  STREET_UNCLASSIFIED,
		"residential":   STREET_RESIDENTIAL,
		"living_street": STREET_LIVING_STREET,
		"service":       STREET_SERVICE,
		"pedestrian":    STREET_PEDESTRIAN,
		"footway":       STREET_FOOTWAY,
		"steps":         STREET_STEPS,
		"path":          STREET_PATH,
		"cycleway":      STREET_CYCLEWAY,
		"track":         STREET_TRACK,
	}
	// linkSuffix marks ramps of major roads ('primary_link' and so on). They share type of the parent road
	linkSuffix = "_link"
)

// StreetTypes is a set of accepted 'highway' tag values
type StreetTypes map[StreetType]struct{}

// DefaultStreetTypes returns street types walkable by pedestrians. Motorways and trunks are excluded
func DefaultStreetTypes() StreetTypes {
	types := make(StreetTypes, len(streetTypes))
	for _, streetType := range streetTypes {
		if streetType == STREET_MOTORWAY || streetType == STREET_TRUNK {
			continue
		}
		types[streetType] = struct{}{}
	}
	return types
}

// ParseStreetTypes returns set of street types by their tag values
func ParseStreetTypes(names []string) (StreetTypes, error) {
	types := make(StreetTypes, len(names))
	for _, name := range names {
		streetType, ok := streetTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidConfig, "unknown street type '%s'", name)
		}
		types[streetType] = struct{}{}
	}
	return types, nil
}

// Accepts returns true when given 'highway' tag value belongs to the set
func (types StreetTypes) Accepts(highway string) bool {
	streetType, ok := streetTypes[strings.TrimSuffix(highway, linkSuffix)]
	if !ok {
		return false
	}
	_, ok = types[streetType]
	return ok
}
