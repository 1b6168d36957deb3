package reduce

import (
	"strings"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// OS families an agent is classified into.
const (
	OSWindows = "windows"
	OSLinux   = "linux"
	OSMacOS   = "macos"
	OSOther   = "other"
)

// SummaryRow is one counter of the fixed agent summary. The id
// numbering 1..8 is part of the front-end contract.
type SummaryRow struct {
	ID        int    `json:"id"`
	AgentName string `json:"agent_name"`
	Data      int    `json:"data"`
}

var summaryLabels = [8]string{
	"Active agents",
	"Total agents",
	"Active Windows agents",
	"Windows agents",
	"Active Linux agents",
	"Linux agents",
	"Active MacOS agents",
	"MacOS agents",
}

// DetermineOS classifies an OS string into a family by
// case-insensitive substring match.
func DetermineOS(osName string) string {
	name := strings.ToLower(osName)
	switch {
	case strings.Contains(name, "windows") || strings.Contains(name, "microsoft"):
		return OSWindows
	case strings.Contains(name, "linux") || strings.Contains(name, "ubuntu") ||
		strings.Contains(name, "centos") || strings.Contains(name, "redhat") ||
		strings.Contains(name, "debian"):
		return OSLinux
	case strings.Contains(name, "mac") || strings.Contains(name, "darwin"):
		return OSMacOS
	}
	return OSOther
}

// IsActive reports whether an agent status means connected.
func IsActive(status string) bool {
	return strings.EqualFold(status, "active")
}

// LatestByName keeps only the most recent record per logical agent
// name, by maximal last_keep_alive. Input order is preserved for the
// survivors.
func LatestByName(agents []*models.Agent) []*models.Agent {
	latest := make(map[string]*models.Agent, len(agents))
	var order []string
	for _, a := range agents {
		cur, ok := latest[a.AgentName]
		if !ok {
			latest[a.AgentName] = a
			order = append(order, a.AgentName)
			continue
		}
		if a.LastKeepAlive.After(cur.LastKeepAlive) {
			latest[a.AgentName] = a
		}
	}
	out := make([]*models.Agent, 0, len(order))
	for _, name := range order {
		out = append(out, latest[name])
	}
	return out
}

// Summarize produces the fixed 8-counter agent summary: active/total
// overall and per OS family. Agents outside the three families count
// toward the totals only.
func Summarize(agents []*models.Agent) []SummaryRow {
	var active, total int
	activeByOS := map[string]int{}
	totalByOS := map[string]int{}

	for _, a := range agents {
		total++
		family := DetermineOS(a.OS)
		totalByOS[family]++
		if IsActive(a.AgentStatus) {
			active++
			activeByOS[family]++
		}
	}

	data := [8]int{
		active,
		total,
		activeByOS[OSWindows],
		totalByOS[OSWindows],
		activeByOS[OSLinux],
		totalByOS[OSLinux],
		activeByOS[OSMacOS],
		totalByOS[OSMacOS],
	}

	rows := make([]SummaryRow, 8)
	for i := range rows {
		rows[i] = SummaryRow{ID: i + 1, AgentName: summaryLabels[i], Data: data[i]}
	}
	return rows
}
