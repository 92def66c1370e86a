package model

import "time"

// DateLayout is the partition key format used throughout the pipeline.
const DateLayout = "2006-01-02"

// Observation is one ocean-wind measurement extracted from a Sentinel-1
// OCN OWI scene. Date and RowID are derived fields: Date is the UTC calendar
// date of FirstMeasurementTime, RowID is a deterministic hash of the
// observation's semantic key.
type Observation struct {
	RowID                int64     `json:"rowid"`
	FirstMeasurementTime time.Time `json:"firstMeasurementTime"`
	LastMeasurementTime  time.Time `json:"lastMeasurementTime"`
	Lon                  float64   `json:"owiLon"`
	Lat                  float64   `json:"owiLat"`
	WindSpeed            float64   `json:"owiWindSpeed"`
	WindDirection        float64   `json:"owiWindDirection"`
	Mask                 float64   `json:"owiMask"`
	InversionQuality     float64   `json:"owiInversionQuality"`
	Heading              float64   `json:"owiHeading"`
	WindQuality          float64   `json:"owiWindQuality"`
	RadVel               float64   `json:"owiRadVel"`
	Date                 string    `json:"date"`
	SourceFile           string    `json:"-"`
}

// PartitionDate returns the UTC calendar date of t in partition key format.
func PartitionDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
