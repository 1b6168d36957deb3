package reduce

import (
	"sort"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// IoCGroup is the de-duplicated value set of one indicator type.
type IoCGroup struct {
	Type   string   `json:"ioc_type"`
	Count  int      `json:"ioc_count"`
	Values []string `json:"ioc_data"`
}

// IoCBreakdown groups the distinct indicator values per indicator
// type. Values are a set, not a tally; Count is the set size. Events
// without an indicator, or with a blank type or value, are skipped.
// Groups are ordered by type name, values sorted within each group.
func IoCBreakdown(events []*models.WazuhEvent) []IoCGroup {
	sets := make(map[string]map[string]struct{}, 8)
	for _, ev := range events {
		if ev.IoC == nil || ev.IoC.Type == "" || ev.IoC.Value == "" {
			continue
		}
		set := sets[ev.IoC.Type]
		if set == nil {
			set = make(map[string]struct{}, 8)
			sets[ev.IoC.Type] = set
		}
		set[ev.IoC.Value] = struct{}{}
	}

	types := make([]string, 0, len(sets))
	for typ := range sets {
		types = append(types, typ)
	}
	sort.Strings(types)

	out := make([]IoCGroup, 0, len(types))
	for _, typ := range types {
		values := make([]string, 0, len(sets[typ]))
		for v := range sets[typ] {
			values = append(values, v)
		}
		sort.Strings(values)
		out = append(out, IoCGroup{Type: typ, Count: len(values), Values: values})
	}
	return out
}
