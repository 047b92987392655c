package streetnodes

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs the whole enrichment: street network cleaning, dual transform, node enrichment,
// metric merging and dataset finalization
type Pipeline struct {
	cfg        Config
	centrality CentralityComputer
	landUse    LandUseComputer
	schema     *LandUseSchema
	runID      string
	logger     *zap.Logger
}

// Result holds outputs of a single run
type Result struct {
	RunID    string
	Nodes    int
	Full     *Dataset
	Subset   *Dataset
	Premises *Dataset
}

// NewPipeline returns pipeline for validated configuration. Analyzer is the default metric computer
func NewPipeline(cfg Config, options ...func(*Pipeline)) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pipeline := &Pipeline{
		cfg:    cfg,
		runID:  uuid.New().String(),
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(pipeline)
	}
	if pipeline.centrality == nil || pipeline.landUse == nil {
		analyzer := NewAnalyzer(
			WithAngularScalingUnit(cfg.Metrics.AngularScalingUnit),
			WithFarnessScalingOffset(cfg.Metrics.FarnessScalingOffset),
			WithMaxAssignDistance(cfg.Metrics.MaxAssignDistance),
			WithAnalyzerLogger(pipeline.logger.Named("analyzer")),
		)
		if pipeline.centrality == nil {
			pipeline.centrality = analyzer
		}
		if pipeline.landUse == nil {
			pipeline.landUse = analyzer
		}
	}
	if pipeline.schema == nil {
		var err error
		if cfg.LandUse.Schema != "" {
			pipeline.schema, err = LoadLandUseSchema(cfg.LandUse.Schema)
		} else {
			pipeline.schema, err = DefaultLandUseSchema()
		}
		if err != nil {
			return nil, errors.Wrap(err, "Can't load land use schema")
		}
	}
	return pipeline, nil
}

func WithLogger(logger *zap.Logger) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.logger = logger
	}
}

func WithCentralityComputer(computer CentralityComputer) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.centrality = computer
	}
}

func WithLandUseComputer(computer LandUseComputer) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.landUse = computer
	}
}

func WithLandUseSchema(schema *LandUseSchema) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.schema = schema
	}
}

// WithRunID overrides generated run identifier
func WithRunID(runID string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.runID = runID
	}
}

// RunID returns identifier of the run
func (pipeline *Pipeline) RunID() string {
	return pipeline.runID
}

// Run processes inputs and publishes every output atomically
func (pipeline *Pipeline) Run(ctx context.Context) (*Result, error) {
	result, err := pipeline.Process(ctx)
	if err != nil {
		return nil, err
	}
	if err := pipeline.Publish(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Process reads inputs and computes output datasets without writing anything
func (pipeline *Pipeline) Process(ctx context.Context) (*Result, error) {
	logger := pipeline.logger.With(zap.String("run_id", pipeline.runID))
	cfg := pipeline.cfg
	plan := cfg.MergePlan()
	st := time.Now()

	var premises *Premises
	var dual *DualGraph
	var table *NodeTable

	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.Input.Premises != "" && (plan.MixedUses || plan.Accessibility || cfg.Output.Premises != "") {
		group.Go(func() error {
			translated, err := pipeline.readPremises(logger)
			if err != nil {
				return err
			}
			premises = translated
			return groupCtx.Err()
		})
	}
	group.Go(func() error {
		var err error
		dual, table, err = pipeline.prepareNodes(groupCtx, logger)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	weighted, err := BuildNetwork(dual, table, true)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build weighted network")
	}
	unweighted, err := BuildNetwork(dual, table, false)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build unweighted network")
	}
	logger.Info("Network structures prepared", zap.Int("nodes", unweighted.Len()), zap.Int("links", len(dual.Edges)))

	merger := NewMetricMerger(pipeline.centrality, pipeline.landUse, WithMergerLogger(logger.Named("merger")))
	table, err = merger.Merge(ctx, table, premises, weighted, unweighted, plan)
	if err != nil {
		return nil, errors.Wrap(err, "Can't merge metrics")
	}

	policy, _ := ParseFilterPolicy(cfg.Finalize.Policy)
	finalizer := NewDatasetFinalizer(
		WithFilterPolicy(policy),
		WithSimplifyTolerance(cfg.Finalize.SimplifyTolerance),
		WithSubsetDistricts(cfg.Finalize.SubsetDistricts),
		WithFinalizerLogger(logger.Named("finalizer")),
	)
	full, subset, err := finalizer.Finalize(table)
	if err != nil {
		return nil, errors.Wrap(err, "Can't finalize dataset")
	}
	result := &Result{
		RunID:  pipeline.runID,
		Nodes:  table.Len(),
		Full:   full,
		Subset: subset,
	}
	if premises != nil {
		result.Premises = premises.Dataset()
	}
	logger.Info("Processing done", zap.Int("nodes", result.Nodes), zap.Int("full", full.Len()), zap.Int("subset", subset.Len()), zap.Duration("took", time.Since(st)))
	return result, nil
}

// Route prepares street network nodes and returns the shortest (or, when angular, the simplest) path between two dual nodes
func (pipeline *Pipeline) Route(ctx context.Context, from, to string, angular bool) (Route, error) {
	logger := pipeline.logger.With(zap.String("run_id", pipeline.runID))
	dual, table, err := pipeline.prepareNodes(ctx, logger)
	if err != nil {
		return Route{}, err
	}
	network, err := BuildNetwork(dual, table, false)
	if err != nil {
		return Route{}, errors.Wrap(err, "Can't build network")
	}
	route, err := network.Route(from, to, angular)
	if err != nil {
		return Route{}, err
	}
	logger.Info("Route found", zap.String("from", from), zap.String("to", to), zap.Int("nodes", len(route.Keys)), zap.Float64("distance", route.Distance), zap.Float64("angle", route.Angle))
	return route, nil
}

// readPremises reads premises layer and translates it into English schema
func (pipeline *Pipeline) readPremises(logger *zap.Logger) (*Premises, error) {
	layer, err := ReadLayer(pipeline.cfg.Input.Premises)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read premises")
	}
	raw, err := layer.Premises()
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare premises")
	}
	translator := NewLandUseTranslator(pipeline.schema, WithTranslatorLogger(logger.Named("translator")))
	translated, err := translator.Translate(raw)
	if err != nil {
		return nil, errors.Wrap(err, "Can't translate premises")
	}
	logger.Info("Premises prepared", zap.Int("read", raw.Len()), zap.Int("kept", translated.Len()))
	return translated, nil
}

// readStreets reads street lines. OSM files honour configured street types
func (pipeline *Pipeline) readStreets() (*Layer, error) {
	fileName := pipeline.cfg.Input.Streets
	types := pipeline.cfg.Network.StreetTypes
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(types) > 0 && (ext == ".osm" || ext == ".xml" || ext == ".pbf") {
		streetTypes, err := ParseStreetTypes(types)
		if err != nil {
			return nil, err
		}
		return ReadOSMStreets(fileName, streetTypes)
	}
	return ReadLayer(fileName)
}

// prepareNodes builds the dual graph and enriches its nodes with geometry attributes, labels and population
func (pipeline *Pipeline) prepareNodes(ctx context.Context, logger *zap.Logger) (*DualGraph, *NodeTable, error) {
	cfg := pipeline.cfg
	streets, err := pipeline.readStreets()
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't read streets")
	}
	primal := BuildPrimalGraph(streets.Lines(), cfg.Network.KeyPrecision)
	read := len(primal.Edges)
	primal = primal.RemoveFillerNodes()
	primal = primal.RemoveDanglingNodes(cfg.Network.Despine)
	primal = primal.Decompose(cfg.Network.Decompose)
	logger.Info("Primal graph prepared", zap.Int("edges_read", read), zap.Int("edges", len(primal.Edges)), zap.Int("nodes", len(primal.Nodes)))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	dual := ToDual(primal)
	table := NewNodeTable(dual)
	logger.Info("Dual graph prepared", zap.Int("nodes", len(dual.Nodes)), zap.Int("edges", len(dual.Edges)))

	boundaryLayer, err := ReadLayer(cfg.Input.Boundaries)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't read boundaries")
	}
	boundaries, err := boundaryLayer.Boundaries(cfg.Boundary.DistrictField, cfg.Boundary.NeighbourhoodField)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't prepare boundaries")
	}

	enricher := NewGeometryEnricher(NewStudyBoundary(boundaries.Geometries(), cfg.Boundary.Buffer), WithEnricherLogger(logger.Named("enricher")))
	table, err = enricher.Enrich(dual, table)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't enrich geometry attributes")
	}
	// labels follow the output geometry: line centroid for line output, node point otherwise
	geometryKind, _ := ParseGeometryKind(cfg.Finalize.Geometry)
	table, err = table.WithActiveGeometry(geometryKind)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't set output geometry")
	}
	joiner := NewLabelJoiner(boundaries, WithJoinerLogger(logger.Named("joiner")))
	table, err = joiner.Join(table)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't join labels")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	raster, err := OpenRaster(cfg.Input.Population)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't open population raster")
	}
	sampler := NewRasterSampler(raster, WithRescaleFactor(cfg.Raster.RescaleFactor), WithSamplerLogger(logger.Named("sampler")))
	table, err = sampler.Sample(table)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't sample population")
	}
	return dual, table, nil
}

// Publish writes full dataset, subset and cleaned premises to temporary files and renames them into place together
func (pipeline *Pipeline) Publish(result *Result) error {
	cfg := pipeline.cfg
	publisher := NewPublisher(result.RunID, pipeline.logger)
	outputs := []struct {
		fileName string
		layer    string
		dataset  *Dataset
	}{
		{cfg.Output.Dataset, cfg.Output.Layer, result.Full},
		{cfg.Output.Subset, cfg.Output.Layer, result.Subset},
	}
	if cfg.Output.Premises != "" && result.Premises != nil {
		outputs = append(outputs, struct {
			fileName string
			layer    string
			dataset  *Dataset
		}{cfg.Output.Premises, "premises", result.Premises})
	}
	for _, output := range outputs {
		if err := WriteDataset(publisher.Stage(output.fileName), output.layer, output.dataset, cfg.Output.SRID); err != nil {
			publisher.Abort()
			return errors.Wrapf(err, "Can't write '%s'", output.fileName)
		}
	}
	if err := publisher.Commit(); err != nil {
		publisher.Abort()
		return err
	}
	return nil
}
