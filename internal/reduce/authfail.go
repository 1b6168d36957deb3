package reduce

import (
	"strings"

	"github.com/YuCheng1122/threat-graph/internal/store"
)

// AuthFailureRuleID is the rule id of repeated-authentication-failure
// detections.
const AuthFailureRuleID = "60204"

// authFailureLimit caps the technique breakdown at the top 20.
const authFailureLimit = 20

// TechniqueCount is one MITRE technique with its occurrence count.
type TechniqueCount struct {
	Technique string `json:"technique"`
	Count     int    `json:"count"`
}

// AuthFailures folds a technique terms aggregation over
// authentication-failure events into the top-20 breakdown, dropping
// empty technique values. Buckets arrive in backend order (count
// descending), which is preserved.
func AuthFailures(buckets []store.Bucket) []TechniqueCount {
	out := make([]TechniqueCount, 0, authFailureLimit)
	for _, b := range buckets {
		if strings.TrimSpace(b.Key) == "" || b.Count < 1 {
			continue
		}
		out = append(out, TechniqueCount{Technique: b.Key, Count: b.Count})
		if len(out) == authFailureLimit {
			break
		}
	}
	return out
}
