package stac

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// ItemsDir is the directory under the catalog root holding item documents.
const ItemsDir = "items"

// CollectionFile is the collection document name at the catalog root.
const CollectionFile = "collection.json"

// DefaultDescription describes the dataset when the operator supplies none.
const DefaultDescription = "Synthetic Aperture Radar wind vectors derived from " +
	"Copernicus Sentinel-1 Level-2 OCN OWI products, processed into a " +
	"GeoParquet dataset. The dataset contains wind speed, direction, and " +
	"quality flags at approximately 10 m above sea level, along with " +
	"satellite metadata, in daily files. Each file contains point geometries " +
	"in WGS84 with associated attributes."

// Catalog holds the collection and its items between assembly and save.
type Catalog struct {
	Collection *Collection
	Items      []*Item
}

// NewCatalog assembles the single collection over all items: extent is the
// union of the items' bounding boxes and the min/max of their time ranges,
// and every item is linked to the collection bidirectionally (hrefs are
// assigned by Normalize).
func NewCatalog(id, description string, items []*Item, schema model.Schema, extraFields map[string]any) (*Catalog, error) {
	if len(items) == 0 {
		return nil, eris.New("stac: no items to assemble")
	}
	if description == "" {
		description = DefaultDescription
	}

	bbox := model.EmptyBBox()
	var start, end time.Time
	var totalRows int64
	for _, item := range items {
		b := model.BBox{MinX: item.BBox[0], MinY: item.BBox[1], MaxX: item.BBox[2], MaxY: item.BBox[3]}
		bbox = bbox.Union(b)

		s, err := time.Parse(time.RFC3339, item.Properties["start_datetime"].(string))
		if err != nil {
			return nil, eris.Wrapf(err, "stac: item %s start_datetime", item.ID)
		}
		e, err := time.Parse(time.RFC3339, item.Properties["end_datetime"].(string))
		if err != nil {
			return nil, eris.Wrapf(err, "stac: item %s end_datetime", item.ID)
		}
		if start.IsZero() || s.Before(start) {
			start = s
		}
		if e.After(end) {
			end = e
		}

		if rows, ok := item.Properties["table:row_count"].(int64); ok {
			totalRows += rows
		}
	}

	startStr := FormatTime(start)
	endStr := FormatTime(end)

	extra := make(map[string]any, len(extraFields)+1)
	for k, v := range extraFields {
		extra[k] = v
	}
	extra["table:tables"] = []map[string]any{{
		"name":        "owi",
		"description": "Sentinel-1 Ocean Wind Field measurements",
		"columns":     TableColumns(schema),
		"row_count":   totalRows,
	}}

	collection := &Collection{
		Type:           "Collection",
		StacVersion:    Version,
		StacExtensions: []string{ExtTable},
		ID:             id,
		Description:    description,
		License:        "proprietary",
		Extent: Extent{
			Spatial:  SpatialExtent{BBox: [][]float64{bbox.Slice()}},
			Temporal: TemporalExtent{Interval: [][]*string{{&startStr, &endStr}}},
		},
		ExtraFields: extra,
	}

	for _, item := range items {
		item.Collection = id
	}

	return &Catalog{Collection: collection, Items: items}, nil
}

// Normalize assigns absolute hrefs to every link so the catalog resolves
// regardless of the consumer's working directory: collection.json at the
// root, items under items/<id>.json.
func (c *Catalog) Normalize(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return eris.Wrapf(err, "stac: resolve catalog root %s", root)
	}

	collectionHref := filepath.Join(absRoot, CollectionFile)
	c.Collection.Links = []Link{
		{Rel: "self", Href: collectionHref, Type: "application/json"},
		{Rel: "root", Href: collectionHref, Type: "application/json"},
	}

	for _, item := range c.Items {
		itemHref := filepath.Join(absRoot, ItemsDir, item.ID+".json")
		item.Links = []Link{
			{Rel: "self", Href: itemHref, Type: "application/geo+json"},
			{Rel: "root", Href: collectionHref, Type: "application/json"},
			{Rel: "parent", Href: collectionHref, Type: "application/json"},
			{Rel: "collection", Href: collectionHref, Type: "application/json"},
		}
		c.Collection.Links = append(c.Collection.Links, Link{
			Rel:  "item",
			Href: itemHref,
			Type: "application/geo+json",
		})

		// Asset hrefs become absolute too.
		for name, asset := range item.Assets {
			if !filepath.IsAbs(asset.Href) {
				abs, err := filepath.Abs(asset.Href)
				if err != nil {
					return eris.Wrapf(err, "stac: resolve asset %s of item %s", name, item.ID)
				}
				asset.Href = abs
				item.Assets[name] = asset
			}
		}
	}

	return nil
}

// Save validates the catalog and, only if validation passes, writes
// collection.json and every item document under root. Nothing is written on
// a validation failure.
func (c *Catalog) Save(root string) error {
	if err := c.Normalize(root); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	itemsDir := filepath.Join(root, ItemsDir)
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return eris.Wrap(err, "stac: create items dir")
	}

	for _, item := range c.Items {
		path := filepath.Join(itemsDir, item.ID+".json")
		if err := writeJSON(path, item); err != nil {
			return err
		}
	}
	if err := writeJSON(filepath.Join(root, CollectionFile), c.Collection); err != nil {
		return err
	}

	zap.L().Info("catalog saved",
		zap.String("component", "stac"),
		zap.String("collection", c.Collection.ID),
		zap.Int("items", len(c.Items)),
		zap.String("root", root),
	)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "stac: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "stac: write %s", path)
	}
	return nil
}
