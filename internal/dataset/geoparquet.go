package dataset

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// GeoMetadataKey is the parquet key-value metadata key the geospatial
// descriptor is stored under.
const GeoMetadataKey = "geo"

// geoDescriptorVersion is the descriptor spec version this writer emits.
const geoDescriptorVersion = "1.0.0"

// GeoDescriptor is the file-level geospatial metadata block embedded in each
// partition file. It declares, once per file, how the geometry column is
// encoded and which CRS its coordinates are in.
type GeoDescriptor struct {
	Version       string                   `json:"version"`
	PrimaryColumn string                   `json:"primary_column"`
	Columns       map[string]GeoColumnMeta `json:"columns"`
}

// GeoColumnMeta describes one geometry column.
type GeoColumnMeta struct {
	Encoding      string    `json:"encoding"`
	GeometryTypes []string  `json:"geometry_types"`
	CRS           CRS       `json:"crs"`
	Orientation   string    `json:"orientation"`
	Edges         string    `json:"edges"`
	BBox          []float64 `json:"bbox"`
}

// CRS is a structured coordinate reference system description.
type CRS struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   CRSID  `json:"id"`
}

// CRSID identifies a CRS by authority and code.
type CRSID struct {
	Authority string `json:"authority"`
	Code      string `json:"code"`
}

// CRS84 is longitude/latitude WGS84, the CRS every observation is recorded in.
var CRS84 = CRS{
	Type: "GeographicCRS",
	Name: "WGS 84 (CRS84)",
	ID:   CRSID{Authority: "OGC", Code: "CRS84"},
}

// NewGeoDescriptor builds the descriptor for a file whose geometry column
// covers bbox.
func NewGeoDescriptor(bbox model.BBox) GeoDescriptor {
	return GeoDescriptor{
		Version:       geoDescriptorVersion,
		PrimaryColumn: model.ColGeometry,
		Columns: map[string]GeoColumnMeta{
			model.ColGeometry: {
				Encoding:      "WKB",
				GeometryTypes: []string{"Point"},
				CRS:           CRS84,
				Orientation:   "counterclockwise",
				Edges:         "spherical",
				BBox:          bbox.Slice(),
			},
		},
	}
}

// Marshal renders the descriptor as the UTF-8 JSON byte string attached to
// the parquet schema metadata.
func (d GeoDescriptor) Marshal() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: marshal geo descriptor")
	}
	return data, nil
}

// ParseGeoDescriptor decodes a descriptor read back from file metadata.
func ParseGeoDescriptor(data []byte) (GeoDescriptor, error) {
	var d GeoDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return GeoDescriptor{}, eris.Wrap(err, "dataset: parse geo descriptor")
	}
	return d, nil
}
