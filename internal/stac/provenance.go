package stac

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hf-eolus/sarwind-cli/internal/dataset"
)

// Producer identifies the pipeline that generated the dataset, recorded in
// each item's provenance statement.
type Producer struct {
	Name    string // e.g. "sarwind-cli"
	Version string // stable reference tag, e.g. "v1.2.0"
	RunID   string // unique per run
}

// AnnotateProvenance merges the lineage map into every item as a processing
// extension block. Items whose date has a lineage entry get a statement
// naming the contributing scene files; items without one get a generic
// statement and a warning. The extension declaration is idempotent.
func AnnotateProvenance(items []*Item, lineage dataset.Lineage, producer Producer) {
	log := zap.L().With(zap.String("component", "stac.provenance"))

	for _, item := range items {
		files := lineage[item.ID]

		var statement string
		if len(files) > 0 {
			statement = fmt.Sprintf(
				"Derived from Sentinel-1 Level-2 OCN OWI scenes: %s. Processed by %s %s (run %s).",
				strings.Join(files, ", "), producer.Name, producer.Version, producer.RunID,
			)
		} else {
			statement = fmt.Sprintf(
				"Derived from Sentinel-1 Level-2 OCN OWI scenes. Processed by %s %s (run %s).",
				producer.Name, producer.Version, producer.RunID,
			)
			log.Warn("no lineage entry for item, using generic provenance",
				zap.String("item", item.ID),
			)
		}

		item.Properties["processing:lineage"] = statement
		item.Properties["processing:software"] = map[string]string{producer.Name: producer.Version}
		item.AddExtension(ExtProcessing)
	}
}
