package reduce

import (
	"sort"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// MitreRow is one (tactic, technique) correlation row of the
// agent-detail MITRE view.
type MitreRow struct {
	MitreTactic     string   `json:"mitre_tactic"`
	MitreTechnique  string   `json:"mitre_technique"`
	MitreCount      int      `json:"mitre_count"`
	MitreIDs        []string `json:"mitre_ids"`
	RuleDescription string   `json:"rule_description"`
}

// MitreCorrelation groups events by the (tactic, technique) pair,
// counting occurrences and collecting the distinct rule_mitre_id
// values per pair. Events missing any of tactic, technique, or MITRE
// id are excluded. Rows keep first-seen order; ids within a row are
// sorted.
func MitreCorrelation(events []*models.WazuhEvent) []MitreRow {
	type pair struct{ tactic, technique string }
	rows := make(map[pair]*MitreRow, 16)
	ids := make(map[pair]map[string]struct{}, 16)
	var order []pair

	for _, ev := range events {
		if ev.RuleMitreTactic == "" || ev.RuleMitreTechnique == "" || ev.RuleMitreID == "" {
			continue
		}
		key := pair{tactic: ev.RuleMitreTactic, technique: ev.RuleMitreTechnique}
		row, ok := rows[key]
		if !ok {
			row = &MitreRow{
				MitreTactic:     ev.RuleMitreTactic,
				MitreTechnique:  ev.RuleMitreTechnique,
				RuleDescription: ev.RuleDescription,
			}
			rows[key] = row
			ids[key] = make(map[string]struct{}, 4)
			order = append(order, key)
		}
		row.MitreCount++
		ids[key][ev.RuleMitreID] = struct{}{}
	}

	out := make([]MitreRow, 0, len(order))
	for _, key := range order {
		row := rows[key]
		row.MitreIDs = make([]string, 0, len(ids[key]))
		for id := range ids[key] {
			row.MitreIDs = append(row.MitreIDs, id)
		}
		sort.Strings(row.MitreIDs)
		out = append(out, *row)
	}
	return out
}
