package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// LineageFile is the transient provenance file name. It is written before
// the catalog build and removed only after annotation has consumed it.
const LineageFile = "lineage.json"

// Lineage maps a partition date to the distinct source file names that
// contributed observations to it.
type Lineage map[string][]string

// BuildLineage derives lineage from the observation set itself, grouping by
// each observation's own date field.
func BuildLineage(observations []model.Observation) Lineage {
	seen := make(map[string]map[string]struct{})
	for _, o := range observations {
		if o.SourceFile == "" {
			continue
		}
		if seen[o.Date] == nil {
			seen[o.Date] = make(map[string]struct{})
		}
		seen[o.Date][o.SourceFile] = struct{}{}
	}

	lineage := make(Lineage, len(seen))
	for date, files := range seen {
		lineage[date] = sortedKeys(files)
	}
	return lineage
}

// filenameDate matches an 8-digit date token that is not adjacent to other
// digits, e.g. the acquisition date inside a Sentinel-1 scene name.
var filenameDate = regexp.MustCompile(`(?:^|[^0-9])([0-9]{8})(?:[^0-9]|$)`)

// LineageFromFilenames is the fallback derivation used when per-row source
// attribution is unavailable: each filename's embedded YYYYMMDD token is
// taken as its partition date. Filenames without a parsable token are
// excluded. When nothing parses the returned lineage is empty and the caller
// produces no lineage file.
func LineageFromFilenames(names []string) Lineage {
	log := zap.L().With(zap.String("component", "dataset.lineage"))

	seen := make(map[string]map[string]struct{})
	for _, name := range names {
		m := filenameDate.FindStringSubmatch(name)
		if m == nil {
			log.Warn("no date token in filename, excluded from lineage", zap.String("file", name))
			continue
		}
		t, err := time.Parse("20060102", m[1])
		if err != nil {
			log.Warn("unparsable date token in filename, excluded from lineage",
				zap.String("file", name),
				zap.String("token", m[1]),
			)
			continue
		}
		date := t.Format(model.DateLayout)
		if seen[date] == nil {
			seen[date] = make(map[string]struct{})
		}
		seen[date][name] = struct{}{}
	}

	if len(seen) == 0 {
		log.Warn("no filenames parsed, lineage file will not be produced")
		return nil
	}

	lineage := make(Lineage, len(seen))
	for date, files := range seen {
		lineage[date] = sortedKeys(files)
	}
	return lineage
}

// Write serializes the lineage map as a JSON object keyed by date under root.
func (l Lineage) Write(root string) error {
	if len(l) == 0 {
		return eris.New("dataset: refusing to write empty lineage")
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dataset: marshal lineage")
	}
	path := filepath.Join(root, LineageFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	return nil
}

// LoadLineage reads lineage.json from root. A missing file is not an error;
// it returns a nil map so annotation falls back to generic provenance.
func LoadLineage(root string) (Lineage, error) {
	path := filepath.Join(root, LineageFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var lineage Lineage
	if err := json.Unmarshal(data, &lineage); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	return lineage, nil
}

// RemoveLineage deletes the transient lineage file after annotation. An
// already-missing file warns but does not fail.
func RemoveLineage(root string) {
	path := filepath.Join(root, LineageFile)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("lineage file already missing at cleanup", zap.String("path", path))
			return
		}
		zap.L().Warn("could not remove lineage file", zap.String("path", path), zap.Error(err))
	}
}

// Equal is used by tests and idempotency checks: two lineage maps are equal
// when they carry identical date keys and identical sorted file lists.
func (l Lineage) Equal(o Lineage) bool {
	if len(l) != len(o) {
		return false
	}
	for date, files := range l {
		others, ok := o[date]
		if !ok || len(files) != len(others) {
			return false
		}
		for i := range files {
			if files[i] != others[i] {
				return false
			}
		}
	}
	return true
}
