// Package stac builds the spatio-temporal asset catalog published next to
// the partitioned dataset: one item per partition file plus one collection
// aggregating them, STAC spec version 1.0.0 with the table and processing
// extensions.
package stac

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// Version is the STAC spec version every document declares.
const Version = "1.0.0"

// Extension schema URIs.
const (
	ExtTable      = "https://stac-extensions.github.io/table/v1.2.0/schema.json"
	ExtProcessing = "https://stac-extensions.github.io/processing/v1.1.0/schema.json"
)

// MediaTypeParquet is the media type of partition assets.
const MediaTypeParquet = "application/x-parquet"

// Link connects catalog documents.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Asset references a data file belonging to an item.
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Geometry is a GeoJSON polygon footprint.
type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// Item is one catalog entry per partition file.
type Item struct {
	Type           string           `json:"type"`
	StacVersion    string           `json:"stac_version"`
	StacExtensions []string         `json:"stac_extensions"`
	ID             string           `json:"id"`
	Geometry       Geometry         `json:"geometry"`
	BBox           []float64        `json:"bbox"`
	Properties     map[string]any   `json:"properties"`
	Links          []Link           `json:"links"`
	Assets         map[string]Asset `json:"assets"`
	Collection     string           `json:"collection,omitempty"`
}

// SpatialExtent is the union bounding box list of a collection.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent is the overall time interval list of a collection.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

// Extent aggregates spatial and temporal coverage.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// Collection is the single top-level catalog entry.
type Collection struct {
	Type           string   `json:"type"`
	StacVersion    string   `json:"stac_version"`
	StacExtensions []string `json:"stac_extensions"`
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	License        string   `json:"license"`
	Extent         Extent   `json:"extent"`
	Links          []Link   `json:"links"`

	// ExtraFields are merged into the serialized document without
	// overriding core fields. Used for the table extension block and
	// operator-supplied collection properties.
	ExtraFields map[string]any `json:"-"`
}

// MarshalJSON merges ExtraFields into the collection document.
func (c Collection) MarshalJSON() ([]byte, error) {
	type alias Collection
	core, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	if len(c.ExtraFields) == 0 {
		return core, nil
	}

	doc := make(map[string]any)
	if err := json.Unmarshal(core, &doc); err != nil {
		return nil, err
	}
	for k, v := range c.ExtraFields {
		if _, exists := doc[k]; exists {
			continue
		}
		doc[k] = v
	}
	return json.Marshal(doc)
}

// TableColumn is one entry of a table-extension column block.
type TableColumn struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// TableColumns renders a dataset schema as table-extension columns.
func TableColumns(s model.Schema) []TableColumn {
	out := make([]TableColumn, 0, len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, TableColumn{
			Name:        c.Name,
			Description: c.Description,
			Type:        c.Type.String(),
		})
	}
	return out
}

// FormatTime renders an instant as RFC3339 UTC with a trailing Z.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// AddExtension declares an extension schema on the item. Declaring the same
// extension twice is a no-op.
func (i *Item) AddExtension(uri string) {
	for _, e := range i.StacExtensions {
		if e == uri {
			return
		}
	}
	i.StacExtensions = append(i.StacExtensions, uri)
}

func linkByRel(links []Link, rel string) (Link, bool) {
	for _, l := range links {
		if l.Rel == rel {
			return l, true
		}
	}
	return Link{}, false
}

// LoadProperties reads a JSON object of operator-supplied extra properties.
// An empty path yields an empty map.
func LoadProperties(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stac: read properties file %s", path)
	}
	props := make(map[string]any)
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, eris.Wrapf(err, "stac: parse properties file %s", path)
	}
	return props, nil
}
