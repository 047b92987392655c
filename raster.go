package streetnodes

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	// DEFAULT_NODATA is no-data sentinel used when raster header does not declare one
	DEFAULT_NODATA = -200.0
)

// Affine maps grid indices to map coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Inverse returns fractional (col, row) of given map coordinates
func (affine Affine) Inverse(pt orb.Point) (float64, float64, bool) {
	det := affine.A*affine.E - affine.B*affine.D
	if det == 0 {
		return 0, 0, false
	}
	dx := pt.X() - affine.C
	dy := pt.Y() - affine.F
	col := (affine.E*dx - affine.B*dy) / det
	row := (-affine.D*dx + affine.A*dy) / det
	return col, row, true
}

// PopulationRaster is a single band grid of population counts. Read-only
type PopulationRaster struct {
	Width     int
	Height    int
	Values    []float64
	Transform Affine
	NoData    float64
}

// Sample returns value of the cell containing given point.
// Second value is false when point is out of grid or cell holds no-data (NaN included).
func (raster *PopulationRaster) Sample(pt orb.Point) (float64, bool) {
	colF, rowF, ok := raster.Transform.Inverse(pt)
	if !ok {
		return 0, false
	}
	col := int(math.Floor(colF))
	row := int(math.Floor(rowF))
	if col < 0 || row < 0 || col >= raster.Width || row >= raster.Height {
		return 0, false
	}
	value := raster.Values[row*raster.Width+col]
	if math.IsNaN(value) || value == raster.NoData {
		return 0, false
	}
	return value, true
}

// OpenRaster reads population raster from file. Only ESRI ASCII grid (*.asc) is supported
func OpenRaster(fileName string) (*PopulationRaster, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != ".asc" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "raster '%s'", fileName)
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open raster")
	}
	defer f.Close()
	raster, err := ReadASCIIGrid(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read raster '%s'", fileName)
	}
	return raster, nil
}

// ReadASCIIGrid parses ESRI ASCII grid. First row of values is the northern one
func ReadASCIIGrid(r io.Reader) (*PopulationRaster, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	scanner.Split(bufio.ScanWords)

	header := make(map[string]float64)
	var pending *string
	for len(header) < 6 && scanner.Scan() {
		word := scanner.Text()
		key := strings.ToLower(word)
		switch key {
		case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
			if !scanner.Scan() {
				return nil, errors.Errorf("header '%s' has no value", word)
			}
			v, err := strconv.ParseFloat(scanner.Text(), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "header '%s'", word)
			}
			header[key] = v
			continue
		}
		// Header without NODATA_value: first value of grid already consumed
		pending = &word
		break
	}
	ncols, okCols := header["ncols"]
	nrows, okRows := header["nrows"]
	cellSize, okCell := header["cellsize"]
	if !okCols || !okRows || !okCell || ncols <= 0 || nrows <= 0 || cellSize <= 0 {
		return nil, errors.New("incomplete ASCII grid header: ncols, nrows and cellsize are required")
	}
	var left, bottom float64
	if v, ok := header["xllcorner"]; ok {
		left = v
	} else if v, ok := header["xllcenter"]; ok {
		left = v - cellSize/2
	} else {
		return nil, errors.New("incomplete ASCII grid header: xllcorner or xllcenter is required")
	}
	if v, ok := header["yllcorner"]; ok {
		bottom = v
	} else if v, ok := header["yllcenter"]; ok {
		bottom = v - cellSize/2
	} else {
		return nil, errors.New("incomplete ASCII grid header: yllcorner or yllcenter is required")
	}
	noData := DEFAULT_NODATA
	if v, ok := header["nodata_value"]; ok {
		noData = v
	}

	raster := &PopulationRaster{
		Width:  int(ncols),
		Height: int(nrows),
		Values: make([]float64, 0, int(ncols)*int(nrows)),
		Transform: Affine{
			A: cellSize, B: 0, C: left,
			D: 0, E: -cellSize, F: bottom + nrows*cellSize,
		},
		NoData: noData,
	}
	parse := func(word string) error {
		v, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return errors.Wrapf(err, "cell %d", len(raster.Values))
		}
		raster.Values = append(raster.Values, v)
		return nil
	}
	if pending != nil {
		if err := parse(*pending); err != nil {
			return nil, err
		}
	}
	for len(raster.Values) < raster.Width*raster.Height && scanner.Scan() {
		if err := parse(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't scan grid")
	}
	if len(raster.Values) != raster.Width*raster.Height {
		return nil, errors.Errorf("grid has %d values, expected %d", len(raster.Values), raster.Width*raster.Height)
	}
	return raster, nil
}
