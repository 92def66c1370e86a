package dataset

import (
	"testing"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

func TestEncodePointWKBRoundTrip(t *testing.T) {
	data, err := EncodePointWKB(-3.70, 40.41)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Little-endian 2D point: byte order + type + 2 doubles.
	if len(data) != 21 {
		t.Fatalf("WKB point is %d bytes, want 21", len(data))
	}
	if data[0] != 1 {
		t.Errorf("byte order marker = %d, want 1 (NDR)", data[0])
	}

	lon, lat, err := DecodePointWKB(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if lon != -3.70 || lat != 40.41 {
		t.Errorf("round trip = (%v, %v), want (-3.70, 40.41)", lon, lat)
	}
}

func TestDecodePointWKBRejectsGarbage(t *testing.T) {
	if _, _, err := DecodePointWKB([]byte{0xde, 0xad}); err == nil {
		t.Fatal("expected error for garbage WKB")
	}
}

func TestGeoDescriptor(t *testing.T) {
	bbox := model.BBox{MinX: -3.70, MinY: 40.41, MaxX: -3.60, MaxY: 40.42}

	data, err := NewGeoDescriptor(bbox).Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	d, err := ParseGeoDescriptor(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if d.Version != "1.0.0" {
		t.Errorf("version = %s", d.Version)
	}
	if d.PrimaryColumn != "geometry" {
		t.Errorf("primary column = %s", d.PrimaryColumn)
	}

	col, ok := d.Columns["geometry"]
	if !ok {
		t.Fatal("descriptor missing geometry column")
	}
	if col.Encoding != "WKB" {
		t.Errorf("encoding = %s", col.Encoding)
	}
	if len(col.GeometryTypes) != 1 || col.GeometryTypes[0] != "Point" {
		t.Errorf("geometry types = %v", col.GeometryTypes)
	}
	if col.CRS.ID.Authority != "OGC" || col.CRS.ID.Code != "CRS84" {
		t.Errorf("crs id = %+v", col.CRS.ID)
	}
	if col.Orientation != "counterclockwise" || col.Edges != "spherical" {
		t.Errorf("orientation/edges = %s/%s", col.Orientation, col.Edges)
	}
	if len(col.BBox) != 4 || col.BBox[0] != -3.70 || col.BBox[3] != 40.42 {
		t.Errorf("bbox = %v", col.BBox)
	}
}
