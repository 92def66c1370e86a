package dataset

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// EncodePointWKB serializes a WGS84 longitude/latitude pair as a
// little-endian WKB point. The CRS is not carried in the encoding; the
// dataset declares it once in the file-level geospatial descriptor.
func EncodePointWKB(lon, lat float64) ([]byte, error) {
	p := geom.NewPointFlat(geom.XY, []float64{lon, lat})
	data, err := wkb.Marshal(p, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: encode point WKB")
	}
	return data, nil
}

// DecodePointWKB parses a WKB point back into longitude/latitude. Used when
// recovering partition extents from already-written files.
func DecodePointWKB(data []byte) (lon, lat float64, err error) {
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return 0, 0, eris.Wrap(err, "dataset: decode WKB")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, eris.Errorf("dataset: expected point geometry, got %T", g)
	}
	c := p.Coords()
	return c[0], c[1], nil
}
