// Package ddl derives the external-table schema from the dataset's logical
// schema and registers the table with the query service.
package ddl

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// ColumnsFile is the exported DDL fragment file name.
const ColumnsFile = "columns.sql"

// AthenaType maps a logical column type to its Athena primitive. Every
// logical type has exactly one mapping; anything else is a hard error so a
// schema mistake is caught before any write.
func AthenaType(t model.LogicalType) (string, error) {
	switch t {
	case model.TypeInt32:
		return "INT", nil
	case model.TypeInt64:
		return "BIGINT", nil
	case model.TypeFloat64:
		return "DOUBLE", nil
	case model.TypeString:
		return "STRING", nil
	case model.TypeTimestamp:
		return "TIMESTAMP", nil
	case model.TypeDate:
		return "DATE", nil
	case model.TypeBool:
		return "BOOLEAN", nil
	case model.TypeBinary:
		return "BINARY", nil
	default:
		return "", eris.Errorf("ddl: no external type mapping for logical type %d", int(t))
	}
}

// ExportColumns renders the ordered column definition fragment for the
// external table: every data column except the partition key, as
// "name TYPE, name TYPE". The rowid column is always rendered BIGINT
// regardless of its upstream logical type.
func ExportColumns(s model.Schema) (string, error) {
	var parts []string
	for _, c := range s.DataColumns() {
		var athenaType string
		if c.Name == model.ColRowID {
			athenaType = "BIGINT"
		} else {
			t, err := AthenaType(c.Type)
			if err != nil {
				return "", eris.Wrapf(err, "ddl: column %s", c.Name)
			}
			athenaType = t
		}
		parts = append(parts, c.Name+" "+athenaType)
	}
	return strings.Join(parts, ", "), nil
}

// WriteColumnsFile exports the column fragment as columns.sql under root.
func WriteColumnsFile(root string, s model.Schema) (string, error) {
	fragment, err := ExportColumns(s)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, ColumnsFile)
	if err := os.WriteFile(path, []byte(fragment+"\n"), 0o644); err != nil {
		return "", eris.Wrapf(err, "ddl: write %s", path)
	}
	return fragment, nil
}
