package stac

import (
	"github.com/rotisserie/eris"

	"github.com/hf-eolus/sarwind-cli/internal/dataset"
	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// NewItem builds the catalog item for one partition. The identifier is the
// partition date, the footprint its observation bounding box, the temporal
// property the partition's measurement interval. Extra properties are merged
// first so the derived temporal fields always win.
func NewItem(p dataset.PartitionStats, schema model.Schema, extraProps map[string]any) (*Item, error) {
	if !p.BBox.Valid() {
		return nil, eris.Errorf("stac: partition %s has no spatial extent", p.Date)
	}
	if p.End.Before(p.Start) {
		return nil, eris.Errorf("stac: partition %s has inverted time range", p.Date)
	}

	properties := make(map[string]any, len(extraProps)+6)
	for k, v := range extraProps {
		properties[k] = v
	}
	properties["datetime"] = FormatTime(p.Start)
	properties["start_datetime"] = FormatTime(p.Start)
	properties["end_datetime"] = FormatTime(p.End)
	properties["table:columns"] = TableColumns(schema)
	properties["table:primary_geometry"] = model.ColGeometry
	properties["table:row_count"] = p.RowCount

	item := &Item{
		Type:        "Feature",
		StacVersion: Version,
		ID:          p.Date,
		Geometry:    bboxPolygon(p.BBox),
		BBox:        p.BBox.Slice(),
		Properties:  properties,
		Assets: map[string]Asset{
			"data": {
				Href:  p.Path,
				Type:  MediaTypeParquet,
				Roles: []string{"data"},
			},
		},
	}
	item.AddExtension(ExtTable)

	return item, nil
}

// bboxPolygon renders a bounding box as a closed counterclockwise polygon
// ring.
func bboxPolygon(b model.BBox) Geometry {
	return Geometry{
		Type: "Polygon",
		Coordinates: [][][2]float64{{
			{b.MinX, b.MinY},
			{b.MaxX, b.MinY},
			{b.MaxX, b.MaxY},
			{b.MinX, b.MaxY},
			{b.MinX, b.MinY},
		}},
	}
}
