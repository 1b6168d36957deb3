package reduce

import (
	"sort"

	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// EventTableLimit caps the recent-event table.
const EventTableLimit = 8

// EventRow is one line of the recent-event table.
type EventRow struct {
	Timestamp       string `json:"timestamp"`
	AgentName       string `json:"agent_name"`
	RuleDescription string `json:"rule_description"`
	RuleMitreTactic string `json:"rule_mitre_tactic"`
	RuleMitreID     string `json:"rule_mitre_id"`
	RuleLevel       int    `json:"rule_level"`
}

// AgentEventCount pairs an agent name with its event count.
type AgentEventCount struct {
	AgentName  string `json:"agent_name"`
	EventCount int    `json:"event_count"`
}

// EventTable renders events as table rows, newest first, truncated to
// EventTableLimit. Input order is not assumed.
func EventTable(events []*models.WazuhEvent) []EventRow {
	sorted := make([]*models.WazuhEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > EventTableLimit {
		sorted = sorted[:EventTableLimit]
	}
	rows := make([]EventRow, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, EventRow{
			Timestamp:       e.Timestamp.UTC().Format("2006-01-02T15:04:05"),
			AgentName:       e.AgentName,
			RuleDescription: e.RuleDescription,
			RuleMitreTactic: e.RuleMitreTactic,
			RuleMitreID:     e.RuleMitreID,
			RuleLevel:       e.RuleLevel,
		})
	}
	return rows
}

// AgentEventCounts converts per-agent terms buckets into the count
// payload, keeping the backend bucket order.
func AgentEventCounts(buckets []store.Bucket) []AgentEventCount {
	out := make([]AgentEventCount, 0, len(buckets))
	for _, b := range buckets {
		if b.Key == "" {
			continue
		}
		out = append(out, AgentEventCount{AgentName: b.Key, EventCount: b.Count})
	}
	return out
}
