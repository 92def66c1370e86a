package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOWISchema(t *testing.T) {
	t.Parallel()

	s := OWISchema()
	assert.Equal(t, ColDate, s.PartitionKey)
	assert.Len(t, s.Columns, 14)
	assert.Equal(t, ColRowID, s.Columns[0].Name)
	assert.Equal(t, ColGeometry, s.Columns[len(s.Columns)-1].Name)

	col, err := s.ColumnByName("owiWindSpeed")
	require.NoError(t, err)
	assert.Equal(t, TypeFloat64, col.Type)

	_, err = s.ColumnByName("nope")
	assert.Error(t, err)
}

func TestSchemaDataColumnsExcludePartitionKey(t *testing.T) {
	t.Parallel()

	s := OWISchema()
	for _, c := range s.DataColumns() {
		assert.NotEqual(t, ColDate, c.Name)
	}
	assert.Len(t, s.DataColumns(), len(s.Columns)-1)
}

func TestLogicalTypeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  LogicalType
		want string
	}{
		{TypeInt32, "integer"},
		{TypeInt64, "int64"},
		{TypeFloat64, "number"},
		{TypeString, "string"},
		{TypeTimestamp, "datetime"},
		{TypeDate, "date"},
		{TypeBool, "boolean"},
		{TypeBinary, "binary"},
		{LogicalType(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestPartitionDate(t *testing.T) {
	t.Parallel()

	// 23:30 UTC-1 is already the next day in UTC.
	loc := time.FixedZone("UTC-1", -3600)
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, loc)
	assert.Equal(t, "2024-01-02", PartitionDate(ts))

	assert.Equal(t, "2024-01-01", PartitionDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBBox(t *testing.T) {
	t.Parallel()

	b := EmptyBBox()
	assert.False(t, b.Valid())

	b = b.Extend(-3.70, 40.41)
	b = b.Extend(-3.60, 40.42)
	assert.True(t, b.Valid())
	assert.Equal(t, []float64{-3.70, 40.41, -3.60, 40.42}, b.Slice())

	other := BBox{MinX: -4, MinY: 40, MaxX: -3.9, MaxY: 40.1}
	u := b.Union(other)
	assert.Equal(t, []float64{-4, 40, -3.60, 40.42}, u.Slice())

	// Union with an empty box is identity.
	assert.Equal(t, b, b.Union(EmptyBBox()))
	assert.Equal(t, b, EmptyBBox().Union(b))

	assert.True(t, b.Contains(-3.65, 40.415))
	assert.False(t, b.Contains(0, 0))
}
