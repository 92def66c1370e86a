package model

import "github.com/rotisserie/eris"

// LogicalType enumerates the column types the dataset can carry. The set is
// closed: every column is assigned one of these at schema definition time,
// and anything else is rejected before a single row is written.
type LogicalType int

const (
	TypeInt32 LogicalType = iota
	TypeInt64
	TypeFloat64
	TypeString
	TypeTimestamp
	TypeDate
	TypeBool
	TypeBinary
)

// String returns the logical type name used in table-extension column blocks.
func (t LogicalType) String() string {
	switch t {
	case TypeInt32:
		return "integer"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "number"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "datetime"
	case TypeDate:
		return "date"
	case TypeBool:
		return "boolean"
	case TypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Column describes one dataset column.
type Column struct {
	Name        string
	Description string
	Type        LogicalType
}

// Schema is the ordered column list of the OWI dataset.
type Schema struct {
	Columns      []Column
	PartitionKey string
}

// Column names that receive special treatment in the writer and exporter.
const (
	ColRowID    = "rowid"
	ColDate     = "date"
	ColGeometry = "geometry"
)

// OWISchema returns the canonical schema of the ocean-wind dataset. The
// rowid column is declared "integer" to match the upstream extract typing;
// the parquet writer and the DDL exporter both widen it to 64-bit signed.
func OWISchema() Schema {
	return Schema{
		PartitionKey: ColDate,
		Columns: []Column{
			{Name: ColRowID, Description: "Unique row identifier", Type: TypeInt32},
			{Name: "firstMeasurementTime", Description: "Time of the first measurement (UTC)", Type: TypeTimestamp},
			{Name: "lastMeasurementTime", Description: "Time of the last measurement (UTC)", Type: TypeTimestamp},
			{Name: "owiLon", Description: "Longitude of the pixel center (degrees East)", Type: TypeFloat64},
			{Name: "owiLat", Description: "Latitude of the pixel center (degrees North)", Type: TypeFloat64},
			{Name: "owiWindSpeed", Description: "Surface wind speed (m/s)", Type: TypeFloat64},
			{Name: "owiWindDirection", Description: "Direction of the surface wind vector (degrees clockwise from North)", Type: TypeFloat64},
			{Name: "owiMask", Description: "Wind field mask", Type: TypeFloat64},
			{Name: "owiInversionQuality", Description: "Wind inversion quality index", Type: TypeFloat64},
			{Name: "owiHeading", Description: "Satellite heading (degrees clockwise from North)", Type: TypeFloat64},
			{Name: "owiWindQuality", Description: "Wind quality flag", Type: TypeFloat64},
			{Name: "owiRadVel", Description: "Radial wind velocity (m/s)", Type: TypeFloat64},
			{Name: ColDate, Description: "Date of the observation (UTC)", Type: TypeDate},
			{Name: ColGeometry, Description: "Point geometry of the observation in WGS84 encoded as WKB", Type: TypeBinary},
		},
	}
}

// ColumnByName returns the named column, or an error if the schema does not
// declare it.
func (s Schema) ColumnByName(name string) (Column, error) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, eris.Errorf("model: schema has no column %q", name)
}

// DataColumns returns all columns except the partition key, in declaration
// order.
func (s Schema) DataColumns() []Column {
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == s.PartitionKey {
			continue
		}
		out = append(out, c)
	}
	return out
}
