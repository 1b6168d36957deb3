package reduce

import (
	"strings"
	"time"

	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// TopTactics caps how many tactic series a line chart carries. The
// cap applies to the label set ordered by total count, ties broken by
// backend bucket order.
const TopTactics = 10

// SeriesInterval is the fixed time-series bucket width. Every chart
// uses hourly buckets spanning the requested range.
const SeriesInterval = time.Hour

const seriesTimeLayout = "2006-01-02T15:04:05"

// TacticLabel names one charted tactic.
type TacticLabel struct {
	Label string `json:"label"`
}

// TimePoint is one (interval start, count) sample.
type TimePoint struct {
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// Series is the per-tactic line of a chart.
type Series struct {
	Name string      `json:"name"`
	Type string      `json:"type"`
	Data []TimePoint `json:"data"`
}

// LineChart pairs the tactic label set with the per-tactic series.
type LineChart struct {
	Label []TacticLabel `json:"label"`
	Datas []Series      `json:"datas"`
}

// TacticSeries builds the tactic line chart: one hourly series per
// tactic label, covering every interval of [start, end] so the chart
// has no gaps. Labels come from the backend's tactic bucket ordering,
// truncated to TopTactics; empty and CVE-tagged values are dropped
// defensively even when the filter already excluded them.
func TacticSeries(labels []store.Bucket, events []*models.WazuhEvent, start, end time.Time) LineChart {
	tactics := make([]string, 0, TopTactics)
	for _, b := range labels {
		key := strings.TrimSpace(b.Key)
		if key == "" || strings.HasPrefix(key, "CVE-") {
			continue
		}
		tactics = append(tactics, key)
		if len(tactics) == TopTactics {
			break
		}
	}

	chart := LineChart{Label: make([]TacticLabel, 0, len(tactics)), Datas: make([]Series, 0, len(tactics))}
	if len(tactics) == 0 {
		return chart
	}

	intervals := intervalStarts(start, end)
	counts := make(map[string][]int, len(tactics))
	index := make(map[string]int, len(tactics))
	for i, tactic := range tactics {
		counts[tactic] = make([]int, len(intervals))
		index[tactic] = i
	}

	for _, ev := range events {
		tactic := strings.TrimSpace(ev.RuleMitreTactic)
		if _, ok := index[tactic]; !ok {
			continue
		}
		slot := intervalIndex(intervals, ev.Timestamp)
		if slot < 0 {
			continue
		}
		counts[tactic][slot]++
	}

	for _, tactic := range tactics {
		chart.Label = append(chart.Label, TacticLabel{Label: tactic})
		points := make([]TimePoint, len(intervals))
		for i, ts := range intervals {
			points[i] = TimePoint{Timestamp: ts.Format(seriesTimeLayout), Count: counts[tactic][i]}
		}
		chart.Datas = append(chart.Datas, Series{Name: tactic, Type: "line", Data: points})
	}
	return chart
}

// intervalStarts enumerates the hourly bucket starts covering
// [start, end], aligned to the hour containing start.
func intervalStarts(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	var out []time.Time
	for cur := start.Truncate(SeriesInterval); !cur.After(end); cur = cur.Add(SeriesInterval) {
		out = append(out, cur)
	}
	return out
}

func intervalIndex(intervals []time.Time, ts time.Time) int {
	for i := len(intervals) - 1; i >= 0; i-- {
		if !ts.Before(intervals[i]) {
			return i
		}
	}
	return -1
}
