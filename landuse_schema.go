package streetnodes

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema/madrid_premises.yaml
var defaultLandUseSchema []byte

const (
	DEFAULT_SECTION_COLUMN  = "section_desc"
	DEFAULT_DIVISION_COLUMN = "division_desc"
)

// LandUseSchema is static lookup data for premises: column renames and category translations for both classification levels
type LandUseSchema struct {
	Columns        map[string]string `yaml:"columns"`
	SectionColumn  string            `yaml:"section_column"`
	DivisionColumn string            `yaml:"division_column"`
	Sections       map[string]string `yaml:"sections"`
	Divisions      map[string]string `yaml:"divisions"`
	InvalidMarkers []string          `yaml:"invalid_markers"`
}

// DefaultLandUseSchema returns embedded schema for Madrid census of premises
func DefaultLandUseSchema() (*LandUseSchema, error) {
	return ParseLandUseSchema(defaultLandUseSchema)
}

// LoadLandUseSchema reads schema from YAML file
func LoadLandUseSchema(fileName string) (*LandUseSchema, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read land use schema")
	}
	schema, err := ParseLandUseSchema(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't parse land use schema '%s'", fileName)
	}
	return schema, nil
}

// ParseLandUseSchema decodes schema from YAML. Missing classification column names fall back to defaults
func ParseLandUseSchema(data []byte) (*LandUseSchema, error) {
	schema := &LandUseSchema{}
	if err := yaml.Unmarshal(data, schema); err != nil {
		return nil, errors.Wrap(err, "Can't unmarshal YAML")
	}
	if schema.SectionColumn == "" {
		schema.SectionColumn = DEFAULT_SECTION_COLUMN
	}
	if schema.DivisionColumn == "" {
		schema.DivisionColumn = DEFAULT_DIVISION_COLUMN
	}
	if schema.Columns == nil {
		schema.Columns = map[string]string{}
	}
	if schema.Sections == nil {
		schema.Sections = map[string]string{}
	}
	if schema.Divisions == nil {
		schema.Divisions = map[string]string{}
	}
	return schema, nil
}
