package reduce

import (
	"strconv"

	"github.com/YuCheng1122/threat-graph/internal/logger"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// HighLevelThreshold is the rule level at or above which an event
// counts as high-level for the event table and total-event count.
const HighLevelThreshold = 8

// SeverityCounts is the fixed-key severity histogram. Unseen bands
// stay zero.
type SeverityCounts struct {
	CriticalSeverity int `json:"critical_severity"`
	HighSeverity     int `json:"high_severity"`
	MediumSeverity   int `json:"medium_severity"`
	LowSeverity      int `json:"low_severity"`
}

func (c *SeverityCounts) add(level, n int) {
	switch {
	case level >= 12 && level <= 15:
		c.CriticalSeverity += n
	case level >= 8 && level <= 11:
		c.HighSeverity += n
	case level >= 4 && level <= 7:
		c.MediumSeverity += n
	case level >= 0 && level <= 3:
		c.LowSeverity += n
	}
}

// Severity buckets events into the four severity bands by rule level.
// Levels outside 0..15 are ignored.
func Severity(events []*models.WazuhEvent) SeverityCounts {
	var counts SeverityCounts
	for _, ev := range events {
		counts.add(ev.RuleLevel, 1)
	}
	return counts
}

// SeverityFromBuckets folds a rule_level terms aggregation into the
// severity bands. Buckets with non-numeric keys are skipped and
// logged.
func SeverityFromBuckets(buckets []store.Bucket) SeverityCounts {
	var counts SeverityCounts
	for _, b := range buckets {
		level, err := strconv.Atoi(b.Key)
		if err != nil {
			logger.Warnf("Skipping non-numeric rule_level bucket %q", b.Key)
			continue
		}
		counts.add(level, b.Count)
	}
	return counts
}
