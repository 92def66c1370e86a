package dataset

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// AOIFromShapefile reads an area-of-interest shapefile and returns the
// bounding box covering every shape in it. Observations outside this box are
// dropped at extraction time.
func AOIFromShapefile(path string) (model.BBox, error) {
	r, err := shp.Open(path)
	if err != nil {
		return model.BBox{}, eris.Wrapf(err, "dataset: open AOI shapefile %s", path)
	}
	defer func() { _ = r.Close() }()

	bbox := model.EmptyBBox()
	for r.Next() {
		_, shape := r.Shape()
		if shape == nil {
			continue
		}
		b := shape.BBox()
		bbox = bbox.Extend(b.MinX, b.MinY)
		bbox = bbox.Extend(b.MaxX, b.MaxY)
	}
	if err := r.Err(); err != nil {
		return model.BBox{}, eris.Wrapf(err, "dataset: read AOI shapefile %s", path)
	}
	if !bbox.Valid() {
		return model.BBox{}, eris.Errorf("dataset: AOI shapefile %s has no shapes", path)
	}
	return bbox, nil
}
