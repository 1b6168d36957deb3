package reduce

import (
	"testing"

	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

func eventWithLevel(level int) *models.WazuhEvent {
	return &models.WazuhEvent{RuleLevel: level, RuleDescription: "test"}
}

func TestSeverityBands(t *testing.T) {
	events := []*models.WazuhEvent{
		eventWithLevel(15),
		eventWithLevel(12),
		eventWithLevel(11),
		eventWithLevel(8),
		eventWithLevel(7),
		eventWithLevel(4),
		eventWithLevel(3),
		eventWithLevel(0),
	}

	counts := Severity(events)
	if counts.CriticalSeverity != 2 {
		t.Fatalf("expected 2 critical, got %d", counts.CriticalSeverity)
	}
	if counts.HighSeverity != 2 {
		t.Fatalf("expected 2 high, got %d", counts.HighSeverity)
	}
	if counts.MediumSeverity != 2 {
		t.Fatalf("expected 2 medium, got %d", counts.MediumSeverity)
	}
	if counts.LowSeverity != 2 {
		t.Fatalf("expected 2 low, got %d", counts.LowSeverity)
	}
}

func TestSeverityIgnoresOutOfRangeLevels(t *testing.T) {
	events := []*models.WazuhEvent{
		eventWithLevel(-1),
		eventWithLevel(16),
		eventWithLevel(99),
	}

	counts := Severity(events)
	if counts != (SeverityCounts{}) {
		t.Fatalf("expected all-zero counts, got %+v", counts)
	}
}

func TestSeverityEmptyInput(t *testing.T) {
	counts := Severity(nil)
	if counts != (SeverityCounts{}) {
		t.Fatalf("expected zero-valued counts for empty input, got %+v", counts)
	}
}

func TestSeverityFromBuckets(t *testing.T) {
	buckets := []store.Bucket{
		{Key: "12", Count: 3},
		{Key: "5", Count: 7},
		{Key: "not-a-level", Count: 100},
		{Key: "2", Count: 1},
	}

	counts := SeverityFromBuckets(buckets)
	if counts.CriticalSeverity != 3 {
		t.Fatalf("expected 3 critical, got %d", counts.CriticalSeverity)
	}
	if counts.MediumSeverity != 7 {
		t.Fatalf("expected 7 medium, got %d", counts.MediumSeverity)
	}
	if counts.LowSeverity != 1 {
		t.Fatalf("expected 1 low, got %d", counts.LowSeverity)
	}
	if counts.HighSeverity != 0 {
		t.Fatalf("expected 0 high, got %d", counts.HighSeverity)
	}
}
