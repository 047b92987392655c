package streetnodes

import (
	"math"

	"go.uber.org/zap"
)

const (
	// DEFAULT_RESCALE_FACTOR converts people per 100 m2 cell into people per km2
	DEFAULT_RESCALE_FACTOR = 100.0
)

// Interpolation is raster sampling mode
type Interpolation uint16

const (
	INTERPOLATION_NEAREST = Interpolation(iota + 1)
)

func (iotaIdx Interpolation) String() string {
	return [...]string{"nearest"}[iotaIdx-1]
}

// RasterSampler samples population raster at node points.
// Interpolation mode and no-data value are fixed for sampler's lifetime.
type RasterSampler struct {
	raster        *PopulationRaster
	interpolation Interpolation
	rescaleFactor float64
	fill          float64
	logger        *zap.Logger
}

// NewRasterSampler returns nearest-cell sampler for given raster
func NewRasterSampler(raster *PopulationRaster, options ...func(*RasterSampler)) *RasterSampler {
	sampler := &RasterSampler{
		raster:        raster,
		interpolation: INTERPOLATION_NEAREST,
		rescaleFactor: DEFAULT_RESCALE_FACTOR,
		fill:          0,
		logger:        zap.NewNop(),
	}
	for _, option := range options {
		option(sampler)
	}
	return sampler
}

func WithRescaleFactor(rescaleFactor float64) func(*RasterSampler) {
	return func(sampler *RasterSampler) {
		sampler.rescaleFactor = rescaleFactor
	}
}

func WithSamplerLogger(logger *zap.Logger) func(*RasterSampler) {
	return func(sampler *RasterSampler) {
		sampler.logger = logger
	}
}

// Interpolation returns sampling mode of the sampler
func (sampler *RasterSampler) Interpolation() Interpolation {
	return sampler.interpolation
}

// density returns rescaled non-negative population density for raw sample
func (sampler *RasterSampler) density(value float64, ok bool) float64 {
	if !ok {
		value = sampler.fill
	}
	return math.Max(value, 0) * sampler.rescaleFactor
}

// Sample returns new table with 'pop_dens' column.
// Node point is used even when the active geometry is the primal line.
func (sampler *RasterSampler) Sample(table *NodeTable) (*NodeTable, error) {
	values := make([]float64, table.Len())
	missing := 0
	for i, pt := range table.Points() {
		raw, ok := sampler.raster.Sample(pt)
		if !ok {
			missing++
		}
		values[i] = sampler.density(raw, ok)
	}
	sampler.logger.Debug("Population sampled",
		zap.Int("nodes", table.Len()),
		zap.Int("no_data", missing),
		zap.String("interpolation", sampler.interpolation.String()),
		zap.Float64("rescale_factor", sampler.rescaleFactor),
	)
	return table.WithColumns(NewFloatColumn(FIELD_POP_DENS, values))
}
