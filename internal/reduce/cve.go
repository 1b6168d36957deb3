package reduce

import (
	"regexp"
	"sort"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

var cvePattern = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)

// CVECount is one CVE with its occurrence count.
type CVECount struct {
	CVEName string `json:"cve_name"`
	Count   int    `json:"count"`
}

// ExtractCVE returns the canonical CVE id embedded in the text, if
// any.
func ExtractCVE(text string) (string, bool) {
	match := cvePattern.FindString(text)
	return match, match != ""
}

// CVECounts tallies events by the canonical CVE id found in the MITRE
// tactic field or, failing that, the rule description. Events without
// a CVE reference are excluded. Output is sorted by count descending,
// ties broken by first-seen order.
func CVECounts(events []*models.WazuhEvent) []CVECount {
	counts := make(map[string]int, 16)
	firstSeen := make(map[string]int, 16)
	for _, ev := range events {
		name, ok := ExtractCVE(ev.RuleMitreTactic)
		if !ok {
			name, ok = ExtractCVE(ev.RuleDescription)
		}
		if !ok {
			continue
		}
		if _, seen := counts[name]; !seen {
			firstSeen[name] = len(firstSeen)
		}
		counts[name]++
	}

	out := make([]CVECount, 0, len(counts))
	for name, count := range counts {
		out = append(out, CVECount{CVEName: name, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].CVEName] < firstSeen[out[j].CVEName]
	})
	return out
}
