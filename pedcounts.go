package streetnodes

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	FIELD_NETWORK_KEY = "network_key"

	pedCountsDateLayout = "02/01/2006 15:04"
	pedCountsDateOutput = "2006-01-02T15:04:05"
	// stations stay in geographic coordinates as published, they are never measured against the network
	pedCountsSRID = 4326
)

// PED_COUNTS_HEADERS are English names of counting stations CSV columns in file order
var PED_COUNTS_HEADERS = []string{
	"date",
	"time",
	"identifier",
	"pedestrians",
	"district_num",
	"district",
	"street_name",
	"number",
	"postal_code",
	"address_observations",
	"lat",
	"lng",
}

// MADRID_COUNT_ALLOCATION maps counting station identifier to dual node key of the street it observes
var MADRID_COUNT_ALLOCATION = map[string]string{
	"PERM_PEA02_PM01": "x440517.809-y4474758.042_x440549.026-y4474893.653_k0",
	"PERM_PEA03_PM01": "x439984.449-y4474992.468_x439988.773-y4475049.491_k0",
	"PERM_PEA04_PM01": "x440563.685-y4474719.804_x440622.449-y4474820.005_k0",
	"PERM_PEA05_PM01": "x440471.682-y4474244.036_x440556.38-y4474235.348_k0",
	"PERM_PEA06_PM01": "x440874.043-y4473631.349_x440968.09-y4473570.47_k0",
	"PERM_PEA07_PM01": "x440018.785-y4474200.428_x440122.191-y4474217.16_k0",
	"PERM_PEA08_PM01": "x440205.425-y4474639.521_x440279.457-y4474632.141_k0",
	"PERM_PEA08_PM02": "x440205.425-y4474639.521_x440279.457-y4474632.141_k0",
	"PERM_PEA09_PM01": "x441219.289-y4474563.999_x441251.911-y4474672.194_k0",
	"PERM_PEA10_PM01": "x441064.298-y4475401.158_x441134.78-y4475354.513_k0",
	"PERM_PEA11_PM01": "x440764.468-y4473885.577_x440865.054-y4473860.77_k0",
	"PERM_PEA12_PM01": "x438588.393-y4473963.679_x438799.254-y4473341.958_k0",
	"PERM_PEA13_PM01": "x439558.791-y4475220.698_x439618.931-y4475107.403_k0",
	"PERM_PEA14_PM01": "x439457.756-y4475771.408_x439613.08-y4475749.53_k0",
	"PERM_PEA15_PM01": "x439969.641-y4473818.295_x439976.65-y4473877.293_k0",
	"PERM_PEA16_PM01": "x441221.663-y4473426.529_x441259.159-y4473406.046_k0",
	"PERM_PEA17_PM01": "x440425.399-y4472967.182_x440456.751-y4472976.772_k0",
	"PERM_PEA18_PM01": "x440730.947-y4474400.987_x440909.644-y4474465.422_k0",
	"PERM_PEA19_PM01": "x439465.043-y4474070.704_x439468.389-y4474123.23_k0",
}

// PedCountsReader reads pedestrian counting stations CSV: semicolon delimited, decimal commas, dates as 'dd/mm/yyyy HH:MM'
type PedCountsReader struct {
	allocation map[string]string
	logger     *zap.Logger
}

func NewPedCountsReader(options ...func(*PedCountsReader)) *PedCountsReader {
	reader := &PedCountsReader{
		allocation: MADRID_COUNT_ALLOCATION,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(reader)
	}
	return reader
}

// WithAllocation sets station identifier to network key map
func WithAllocation(allocation map[string]string) func(*PedCountsReader) {
	return func(reader *PedCountsReader) {
		reader.allocation = allocation
	}
}

func WithPedCountsLogger(logger *zap.Logger) func(*PedCountsReader) {
	return func(reader *PedCountsReader) {
		reader.logger = logger
	}
}

// ReadFile reads counts from file
func (reader *PedCountsReader) ReadFile(fileName string) (*Dataset, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open counts file")
	}
	defer file.Close()
	return reader.Read(file)
}

// Read returns counts as point dataset keyed by 'network_key'. Stations without allocation get empty key.
// Column 'time' is dropped since 'date' holds the timestamp
func (reader *PedCountsReader) Read(r io.Reader) (*Dataset, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = ';'
	csvReader.FieldsPerRecord = len(PED_COUNTS_HEADERS)
	if _, err := csvReader.Read(); err != nil {
		return nil, errors.Wrap(err, "Can't read counts header")
	}

	dataset := &Dataset{
		KeyName:      FIELD_NETWORK_KEY,
		GeometryKind: GEOMETRY_POINT,
	}
	var (
		dates, identifiers, districts, streets, postalCodes, observations []*string
		pedestrians, lats, lngs                                           []float64
		districtNums, numbers                                             []*int64
	)
	unallocated := 0
	for row := 1; ; row++ {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Can't read counts row %d", row)
		}
		value := func(name string) string {
			for i, header := range PED_COUNTS_HEADERS {
				if header == name {
					return strings.TrimSpace(record[i])
				}
			}
			return ""
		}
		date, err := parseCountDate(value("date"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", row)
		}
		lat, err := parseDecimalComma(value("lat"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: lat", row)
		}
		lng, err := parseDecimalComma(value("lng"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: lng", row)
		}
		count, err := parseDecimalComma(value("pedestrians"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: pedestrians", row)
		}
		districtNum, err := parseOptionalInt(value("district_num"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: district_num", row)
		}
		number, err := parseOptionalInt(value("number"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: number", row)
		}

		identifier := value("identifier")
		key, ok := reader.allocation[identifier]
		if !ok {
			unallocated++
		}
		dataset.Keys = append(dataset.Keys, key)
		dataset.Geometries = append(dataset.Geometries, orb.Point{lng, lat})
		dates = append(dates, date)
		identifiers = append(identifiers, optionalString(identifier))
		pedestrians = append(pedestrians, count)
		districtNums = append(districtNums, districtNum)
		districts = append(districts, optionalString(value("district")))
		streets = append(streets, optionalString(value("street_name")))
		numbers = append(numbers, number)
		postalCodes = append(postalCodes, optionalString(value("postal_code")))
		observations = append(observations, optionalString(value("address_observations")))
		lats = append(lats, lat)
		lngs = append(lngs, lng)
	}
	dataset.Columns = []Column{
		optionalStringColumn("date", dates),
		optionalStringColumn("identifier", identifiers),
		NewFloatColumn("pedestrians", pedestrians),
		optionalIntColumn("district_num", districtNums),
		optionalStringColumn("district", districts),
		optionalStringColumn("street_name", streets),
		optionalIntColumn("number", numbers),
		optionalStringColumn("postal_code", postalCodes),
		optionalStringColumn("address_observations", observations),
		NewFloatColumn("lat", lats),
		NewFloatColumn("lng", lngs),
	}
	reader.logger.Info("Counts read", zap.Int("rows", dataset.Len()), zap.Int("unallocated", unallocated))
	return dataset, nil
}

// WritePedCounts writes counts dataset. Coordinates are WGS84 longitude/latitude
func WritePedCounts(fileName string, dataset *Dataset) error {
	return WriteDataset(fileName, "ped_counts", dataset, pedCountsSRID)
}

func parseCountDate(s string) (*string, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(pedCountsDateLayout, s)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't parse date '%s'", s)
	}
	formatted := t.Format(pedCountsDateOutput)
	return &formatted, nil
}

// parseDecimalComma parses number written with decimal comma. Empty value is NaN
func parseDecimalComma(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func parseOptionalInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalStringColumn(name string, values []*string) Column {
	out := make([]string, len(values))
	valid := make([]bool, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
			valid[i] = true
		}
	}
	return NewNullableStringColumn(name, out, valid)
}

func optionalIntColumn(name string, values []*int64) Column {
	out := make([]int64, len(values))
	valid := make([]bool, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
			valid[i] = true
		}
	}
	return Column{Name: name, Kind: COLUMN_INT64, Ints: out, Valid: valid}
}
