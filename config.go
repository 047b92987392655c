package streetnodes

import (
	"strings"

	"github.com/pkg/errors"
)

// Config holds the full pipeline configuration
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Network  NetworkConfig  `yaml:"network" mapstructure:"network"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Raster   RasterConfig   `yaml:"raster" mapstructure:"raster"`
	LandUse  LandUseConfig  `yaml:"landuse" mapstructure:"landuse"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Finalize FinalizeConfig `yaml:"finalize" mapstructure:"finalize"`
	Counts   CountsConfig   `yaml:"counts" mapstructure:"counts"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig locates source layers
type InputConfig struct {
	Streets    string `yaml:"streets" mapstructure:"streets"`
	Boundaries string `yaml:"boundaries" mapstructure:"boundaries"`
	Premises   string `yaml:"premises" mapstructure:"premises"`
	Population string `yaml:"population" mapstructure:"population"`
}

// OutputConfig locates outputs. Format is chosen by extension
type OutputConfig struct {
	Dataset  string `yaml:"dataset" mapstructure:"dataset"`
	Subset   string `yaml:"subset" mapstructure:"subset"`
	Premises string `yaml:"premises" mapstructure:"premises"`
	Layer    string `yaml:"layer" mapstructure:"layer"`
	SRID     int    `yaml:"srid" mapstructure:"srid"`
}

// NetworkConfig configures primal graph cleaning.
// Every length in configuration (despine, decompose, boundary buffer, metric distances, simplify tolerance)
// is measured in units of the street layer's CRS. OSM input is projected to Web Mercator (EPSG:3857)
// whose units stretch ground distances by 1/cos(latitude), about 1.3 at Madrid,
// so the same thresholds cover roughly 23% less ground there than in a metric projection.
type NetworkConfig struct {
	KeyPrecision int      `yaml:"key_precision" mapstructure:"key_precision"`
	Despine      float64  `yaml:"despine" mapstructure:"despine"`
	Decompose    float64  `yaml:"decompose" mapstructure:"decompose"`
	StreetTypes  []string `yaml:"street_types" mapstructure:"street_types"`
}

// BoundaryConfig configures administrative units. Boundary layer must share the street layer's CRS
type BoundaryConfig struct {
	DistrictField      string  `yaml:"district_field" mapstructure:"district_field"`
	NeighbourhoodField string  `yaml:"neighbourhood_field" mapstructure:"neighbourhood_field"`
	Buffer             float64 `yaml:"buffer" mapstructure:"buffer"`
}

// RasterConfig configures population sampling
type RasterConfig struct {
	RescaleFactor float64 `yaml:"rescale_factor" mapstructure:"rescale_factor"`
}

// LandUseConfig configures premises translation. Empty schema means embedded default
type LandUseConfig struct {
	Schema string `yaml:"schema" mapstructure:"schema"`
	Column string `yaml:"column" mapstructure:"column"`
}

// MetricsConfig selects metric passes
type MetricsConfig struct {
	CentralityDistances  []int    `yaml:"centrality_distances" mapstructure:"centrality_distances"`
	LandUseDistances     []int    `yaml:"landuse_distances" mapstructure:"landuse_distances"`
	AccessibilityKeys    []string `yaml:"accessibility_keys" mapstructure:"accessibility_keys"`
	Weighted             bool     `yaml:"weighted" mapstructure:"weighted"`
	Segment              bool     `yaml:"segment" mapstructure:"segment"`
	MixedUses            bool     `yaml:"mixed_uses" mapstructure:"mixed_uses"`
	Accessibility        bool     `yaml:"accessibility" mapstructure:"accessibility"`
	AngularScalingUnit   float64  `yaml:"angular_scaling_unit" mapstructure:"angular_scaling_unit"`
	FarnessScalingOffset float64  `yaml:"farness_scaling_offset" mapstructure:"farness_scaling_offset"`
	MaxAssignDistance    float64  `yaml:"max_assign_distance" mapstructure:"max_assign_distance"`
}

// FinalizeConfig configures filtering, simplification and geometry of outputs
type FinalizeConfig struct {
	Policy            string   `yaml:"policy" mapstructure:"policy"`
	Geometry          string   `yaml:"geometry" mapstructure:"geometry"`
	SimplifyTolerance float64  `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
	SubsetDistricts   []string `yaml:"subset_districts" mapstructure:"subset_districts"`
}

// CountsConfig configures pedestrian counts preparation
type CountsConfig struct {
	Input      string            `yaml:"input" mapstructure:"input"`
	Output     string            `yaml:"output" mapstructure:"output"`
	Allocation map[string]string `yaml:"allocation" mapstructure:"allocation"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns configuration reproducing the reference Madrid run
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Streets:    "data/street_network.gpkg",
			Boundaries: "data/neighbourhoods.gpkg",
			Premises:   "data/premises_activities.gpkg",
			Population: "data/population_clipped.asc",
		},
		Output: OutputConfig{
			Dataset:  "out/dataset.gpkg",
			Subset:   "out/dataset_subset.gpkg",
			Premises: "out/premises_clean.gpkg",
			Layer:    "nodes",
			SRID:     DEFAULT_SRID,
		},
		Network: NetworkConfig{
			KeyPrecision: DEFAULT_KEY_PRECISION,
		},
		Boundary: BoundaryConfig{
			DistrictField:      "NOMDIS",
			NeighbourhoodField: "NOMBRE",
			Buffer:             DEFAULT_BOUNDARY_BUFFER,
		},
		Raster: RasterConfig{
			RescaleFactor: DEFAULT_RESCALE_FACTOR,
		},
		LandUse: LandUseConfig{
			Column: DEFAULT_DIVISION_COLUMN,
		},
		Metrics: MetricsConfig{
			CentralityDistances:  append([]int{}, CENTRALITY_DISTANCES...),
			LandUseDistances:     append([]int{}, LANDUSE_DISTANCES...),
			AccessibilityKeys:    append([]string{}, ACCESSIBILITY_KEYS...),
			Weighted:             true,
			Segment:              true,
			MixedUses:            true,
			Accessibility:        true,
			AngularScalingUnit:   DEFAULT_ANGULAR_SCALING_UNIT,
			FarnessScalingOffset: DEFAULT_FARNESS_SCALING_OFFSET,
			MaxAssignDistance:    DEFAULT_MAX_ASSIGN_DISTANCE,
		},
		Finalize: FinalizeConfig{
			Policy:            FILTER_LIVE_AND_DISTRICT.String(),
			Geometry:          GEOMETRY_LINE.String(),
			SimplifyTolerance: DEFAULT_SIMPLIFY_TOLERANCE,
			SubsetDistricts:   append([]string{}, SUBSET_DISTRICTS...),
		},
		Counts: CountsConfig{
			Input:  "data/2021_ped_counts.csv",
			Output: "out/ped_counts.geojson",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks configuration consistency
func (cfg *Config) Validate() error {
	if cfg.Input.Streets == "" {
		return errors.Wrap(ErrInvalidConfig, "input.streets is empty")
	}
	if cfg.Input.Boundaries == "" {
		return errors.Wrap(ErrInvalidConfig, "input.boundaries is empty")
	}
	if cfg.Input.Population == "" {
		return errors.Wrap(ErrInvalidConfig, "input.population is empty")
	}
	if cfg.Output.Dataset == "" || cfg.Output.Subset == "" {
		return errors.Wrap(ErrInvalidConfig, "output.dataset and output.subset are required")
	}
	if cfg.Output.Layer == "" {
		return errors.Wrap(ErrInvalidConfig, "output.layer is empty")
	}
	if cfg.Network.KeyPrecision < 0 {
		return errors.Wrapf(ErrInvalidConfig, "network.key_precision is negative: %d", cfg.Network.KeyPrecision)
	}
	if cfg.Boundary.Buffer < 0 {
		return errors.Wrapf(ErrInvalidConfig, "boundary.buffer is negative: %f", cfg.Boundary.Buffer)
	}
	if _, err := normaliseDistances(cfg.Metrics.CentralityDistances); err != nil {
		return errors.Wrap(err, "metrics.centrality_distances")
	}
	if cfg.Metrics.MixedUses || cfg.Metrics.Accessibility {
		if cfg.Input.Premises == "" {
			return errors.Wrap(ErrInvalidConfig, "land use metrics require input.premises")
		}
		if _, err := normaliseDistances(cfg.Metrics.LandUseDistances); err != nil {
			return errors.Wrap(err, "metrics.landuse_distances")
		}
	}
	if cfg.Metrics.AngularScalingUnit <= 0 {
		return errors.Wrap(ErrInvalidConfig, "metrics.angular_scaling_unit must be positive")
	}
	if _, err := ParseFilterPolicy(cfg.Finalize.Policy); err != nil {
		return err
	}
	if _, err := ParseGeometryKind(cfg.Finalize.Geometry); err != nil {
		return err
	}
	if cfg.Finalize.SimplifyTolerance < 0 {
		return errors.Wrap(ErrInvalidConfig, "finalize.simplify_tolerance is negative")
	}
	if len(cfg.Network.StreetTypes) > 0 {
		if _, err := ParseStreetTypes(cfg.Network.StreetTypes); err != nil {
			return err
		}
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "json", "console":
	default:
		return errors.Wrapf(ErrInvalidConfig, "log.format '%s'", cfg.Log.Format)
	}
	return nil
}

// MergePlan returns merge plan selected by metrics configuration
func (cfg *Config) MergePlan() MergePlan {
	plan := DefaultMergePlan()
	plan.CentralityDistances = cfg.Metrics.CentralityDistances
	plan.LandUseDistances = cfg.Metrics.LandUseDistances
	plan.AccessibilityKeys = cfg.Metrics.AccessibilityKeys
	plan.LandUseColumn = cfg.LandUse.Column
	plan.MixedUses = cfg.Metrics.MixedUses
	plan.Accessibility = cfg.Metrics.Accessibility
	passes := make([]CentralityPass, 0, len(plan.CentralityPasses))
	for _, pass := range plan.CentralityPasses {
		if pass.Weighted && !cfg.Metrics.Weighted {
			continue
		}
		if pass.Path == PATH_SEGMENT && !cfg.Metrics.Segment {
			continue
		}
		passes = append(passes, pass)
	}
	plan.CentralityPasses = passes
	return plan
}
