package reduce

import (
	"regexp"
	"sort"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// MaliciousFileRuleIDs are the rule ids associated with
// malicious-file detections.
var MaliciousFileRuleIDs = []string{"87105", "100003"}

// winPathPattern matches a Windows-style absolute path ending in a
// dangerous extension inside free-text rule descriptions.
var winPathPattern = regexp.MustCompile(`[a-zA-Z]:\\(?:[^\\/:*?"<>|` + "\r\n" + `]+\\)*[^\\/:*?"<>|` + "\r\n" + `]*\.(?:zip|exe|bat|cmd|ps1|vbs|js)`)

// FileCount is one detected file with its occurrence count.
type FileCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ExtractFilePath pulls the file path out of a rule description. When
// no path pattern matches, the whole description is the grouping key.
func ExtractFilePath(description string) string {
	if match := winPathPattern.FindString(description); match != "" {
		return match
	}
	return description
}

// MaliciousFiles tallies malicious-file events by extracted path,
// sorted by count descending, ties broken by first-seen order.
func MaliciousFiles(events []*models.WazuhEvent) []FileCount {
	counts := make(map[string]int, 16)
	firstSeen := make(map[string]int, 16)
	for _, ev := range events {
		name := ExtractFilePath(ev.RuleDescription)
		if name == "" {
			continue
		}
		if _, seen := counts[name]; !seen {
			firstSeen[name] = len(firstSeen)
		}
		counts[name]++
	}

	out := make([]FileCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, FileCount{Name: name, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].Name] < firstSeen[out[j].Name]
	})
	return out
}
