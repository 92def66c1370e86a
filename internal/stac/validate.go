package stac

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Validate checks the assembled catalog against the structural requirements
// of the catalog spec: versions, identifiers, geometry and extent sanity,
// bidirectional link integrity, and resolvable asset references. Any
// violation is fatal; all problems found are reported together.
func (c *Catalog) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	col := c.Collection
	if col.Type != "Collection" {
		add("collection: type is %q, want Collection", col.Type)
	}
	if col.StacVersion != Version {
		add("collection: stac_version is %q, want %s", col.StacVersion, Version)
	}
	if col.ID == "" {
		add("collection: empty id")
	}
	if col.Description == "" {
		add("collection: empty description")
	}
	if col.License == "" {
		add("collection: empty license")
	}
	if len(col.Extent.Spatial.BBox) == 0 {
		add("collection: missing spatial extent")
	} else {
		validateBBox(col.Extent.Spatial.BBox[0], "collection", add)
	}
	if len(col.Extent.Temporal.Interval) == 0 || len(col.Extent.Temporal.Interval[0]) != 2 {
		add("collection: missing temporal extent")
	} else {
		for i, v := range col.Extent.Temporal.Interval[0] {
			if v == nil {
				continue
			}
			if _, err := time.Parse(time.RFC3339, *v); err != nil {
				add("collection: temporal interval[%d] %q is not RFC3339", i, *v)
			}
		}
	}
	if _, ok := linkByRel(col.Links, "self"); !ok {
		add("collection: missing self link")
	}
	if _, ok := linkByRel(col.Links, "root"); !ok {
		add("collection: missing root link")
	}

	itemLinks := make(map[string]struct{})
	for _, l := range col.Links {
		if l.Rel == "item" {
			itemLinks[l.Href] = struct{}{}
		}
	}
	if len(itemLinks) != len(c.Items) {
		add("collection: %d item links for %d items", len(itemLinks), len(c.Items))
	}

	seenIDs := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		prefix := fmt.Sprintf("item %s", item.ID)

		if item.Type != "Feature" {
			add("%s: type is %q, want Feature", prefix, item.Type)
		}
		if item.StacVersion != Version {
			add("%s: stac_version is %q, want %s", prefix, item.StacVersion, Version)
		}
		if item.ID == "" {
			add("item: empty id")
		}
		if _, dup := seenIDs[item.ID]; dup {
			add("%s: duplicate id", prefix)
		}
		seenIDs[item.ID] = struct{}{}

		if item.Collection != col.ID {
			add("%s: collection is %q, want %q", prefix, item.Collection, col.ID)
		}
		if item.Geometry.Type == "" {
			add("%s: missing geometry", prefix)
		}
		validateBBox(item.BBox, prefix, add)
		validateDatetimes(item, prefix, add)

		for _, rel := range []string{"self", "root", "parent", "collection"} {
			if _, ok := linkByRel(item.Links, rel); !ok {
				add("%s: missing %s link", prefix, rel)
			}
		}

		self, ok := linkByRel(item.Links, "self")
		if ok {
			if _, linked := itemLinks[self.Href]; !linked {
				add("%s: collection has no item link to %s", prefix, self.Href)
			}
		}

		data, ok := item.Assets["data"]
		if !ok {
			add("%s: missing data asset", prefix)
		} else if !strings.Contains(data.Href, "://") {
			if _, err := os.Stat(data.Href); err != nil {
				add("%s: asset href %s does not resolve: %v", prefix, data.Href, err)
			}
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("stac: catalog validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func validateBBox(bbox []float64, prefix string, add func(string, ...any)) {
	if len(bbox) != 4 {
		add("%s: bbox has %d values, want 4", prefix, len(bbox))
		return
	}
	if bbox[0] > bbox[2] || bbox[1] > bbox[3] {
		add("%s: bbox min exceeds max: %v", prefix, bbox)
	}
	if bbox[0] < -180 || bbox[2] > 180 || bbox[1] < -90 || bbox[3] > 90 {
		add("%s: bbox outside WGS84 range: %v", prefix, bbox)
	}
}

func validateDatetimes(item *Item, prefix string, add func(string, ...any)) {
	parse := func(key string) (time.Time, bool) {
		raw, ok := item.Properties[key]
		if !ok {
			add("%s: missing %s", prefix, key)
			return time.Time{}, false
		}
		s, ok := raw.(string)
		if !ok {
			add("%s: %s is not a string", prefix, key)
			return time.Time{}, false
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			add("%s: %s %q is not RFC3339", prefix, key, s)
			return time.Time{}, false
		}
		return t, true
	}

	parse("datetime")
	start, okStart := parse("start_datetime")
	end, okEnd := parse("end_datetime")
	if okStart && okEnd && end.Before(start) {
		add("%s: end_datetime before start_datetime", prefix)
	}
}
