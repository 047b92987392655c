package streetnodes

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// shapefileSidecars are companion files written next to *.shp
var shapefileSidecars = []string{".shx", ".dbf"}

// WriteDataset writes dataset by file extension: GeoPackage (*.gpkg), GeoJSON (*.geojson, *.json) or ESRI Shapefile (*.shp)
func WriteDataset(fileName, layerName string, dataset *Dataset, srid int) error {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".gpkg":
		return WriteGeoPackage(fileName, layerName, dataset, srid)
	case ".geojson", ".json":
		return WriteGeoJSON(fileName, dataset)
	case ".shp":
		return WriteShapefile(fileName, dataset)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "output '%s'", fileName)
	}
}

// stagedFile is an output written to temporary path and waiting for commit
type stagedFile struct {
	temporary string
	target    string
}

// Publisher makes a set of outputs visible all at once: files are written to temporary paths
// next to their targets and renamed only on Commit
type Publisher struct {
	runID  string
	staged []stagedFile
	logger *zap.Logger
}

func NewPublisher(runID string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		runID:  runID,
		logger: logger,
	}
}

// Stage returns temporary path to write target to
func (publisher *Publisher) Stage(target string) string {
	dir, base := filepath.Split(target)
	temporary := filepath.Join(dir, ".tmp-"+publisher.runID+"-"+base)
	publisher.staged = append(publisher.staged, stagedFile{temporary: temporary, target: target})
	if strings.EqualFold(filepath.Ext(target), ".shp") {
		for _, ext := range shapefileSidecars {
			publisher.staged = append(publisher.staged, stagedFile{
				temporary: replaceExt(temporary, ext),
				target:    replaceExt(target, ext),
			})
		}
	}
	return temporary
}

func replaceExt(fileName, ext string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ext
}

// Commit renames every staged file into place. Nothing is renamed when some staged file is missing
func (publisher *Publisher) Commit() error {
	for _, file := range publisher.staged {
		if _, err := os.Stat(file.temporary); err != nil {
			return errors.Wrapf(err, "staged output '%s' is missing", file.target)
		}
	}
	for _, file := range publisher.staged {
		if err := os.Rename(file.temporary, file.target); err != nil {
			return errors.Wrapf(err, "Can't publish '%s'", file.target)
		}
		publisher.logger.Info("Output published", zap.String("file", file.target))
	}
	publisher.staged = nil
	return nil
}

// Abort removes every staged file
func (publisher *Publisher) Abort() {
	for _, file := range publisher.staged {
		if err := os.Remove(file.temporary); err != nil && !os.IsNotExist(err) {
			publisher.logger.Warn("Can't remove staged output", zap.String("file", file.temporary), zap.Error(err))
		}
	}
	publisher.staged = nil
}
