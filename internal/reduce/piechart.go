package reduce

import (
	"sort"
	"strings"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// pieLimit caps each pie-chart tally at its top 5 entries.
const pieLimit = 5

// PieSlice is one (count, key) pair of a pie chart.
type PieSlice struct {
	Value int    `json:"value"`
	Name  string `json:"name"`
}

// PieCharts carries the four top-5 tallies of the dashboard pie view.
type PieCharts struct {
	TopAgents      []PieSlice `json:"top_agents"`
	TopMitre       []PieSlice `json:"top_mitre"`
	TopEvents      []PieSlice `json:"top_events"`
	TopEventCounts []PieSlice `json:"top_event_counts"`
}

// TopFivePies tallies agent ids, MITRE techniques, and rule
// descriptions independently, then derives the fourth tally: per-agent
// counts among events whose description ranks in the overall top 5.
// Keys that are empty or case-insensitively "unknown" are excluded
// from every tally.
func TopFivePies(events []*models.WazuhEvent) PieCharts {
	agents := newTally()
	techniques := newTally()
	descriptions := newTally()
	for _, ev := range events {
		agents.add(ev.AgentID)
		techniques.add(ev.RuleMitreTechnique)
		descriptions.add(ev.RuleDescription)
	}

	topEvents := descriptions.top(pieLimit)
	topDescriptions := make(map[string]struct{}, len(topEvents))
	for _, slice := range topEvents {
		topDescriptions[slice.Name] = struct{}{}
	}

	agentsOfTop := newTally()
	for _, ev := range events {
		if _, ok := topDescriptions[ev.RuleDescription]; ok {
			agentsOfTop.add(ev.AgentID)
		}
	}

	return PieCharts{
		TopAgents:      agents.top(pieLimit),
		TopMitre:       techniques.top(pieLimit),
		TopEvents:      topEvents,
		TopEventCounts: agentsOfTop.top(pieLimit),
	}
}

type tally struct {
	counts    map[string]int
	firstSeen map[string]int
}

func newTally() *tally {
	return &tally{
		counts:    make(map[string]int, 32),
		firstSeen: make(map[string]int, 32),
	}
}

func (t *tally) add(key string) {
	if key == "" || strings.EqualFold(key, "unknown") {
		return
	}
	if _, ok := t.counts[key]; !ok {
		t.firstSeen[key] = len(t.firstSeen)
	}
	t.counts[key]++
}

func (t *tally) top(n int) []PieSlice {
	out := make([]PieSlice, 0, len(t.counts))
	for key, count := range t.counts {
		out = append(out, PieSlice{Value: count, Name: key})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return t.firstSeen[out[i].Name] < t.firstSeen[out[j].Name]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
