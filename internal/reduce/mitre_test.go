package reduce

import (
	"reflect"
	"testing"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

func TestMitreCorrelationGroupsByPair(t *testing.T) {
	events := []*models.WazuhEvent{
		{RuleMitreTactic: "Execution", RuleMitreTechnique: "T1059", RuleMitreID: "T1059.001", RuleDescription: "Shell spawned"},
		{RuleMitreTactic: "Execution", RuleMitreTechnique: "T1059", RuleMitreID: "T1059.003", RuleDescription: "Another shell"},
		{RuleMitreTactic: "Execution", RuleMitreTechnique: "T1059", RuleMitreID: "T1059.001", RuleDescription: "Shell again"},
		{RuleMitreTactic: "Persistence", RuleMitreTechnique: "T1547", RuleMitreID: "T1547", RuleDescription: "Autorun key"},
	}

	rows := MitreCorrelation(events)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.MitreTactic != "Execution" || first.MitreCount != 3 {
		t.Fatalf("unexpected first row %+v", first)
	}
	if !reflect.DeepEqual(first.MitreIDs, []string{"T1059.001", "T1059.003"}) {
		t.Fatalf("expected deduplicated sorted ids, got %v", first.MitreIDs)
	}
	if first.RuleDescription != "Shell spawned" {
		t.Fatalf("expected first-seen description kept, got %q", first.RuleDescription)
	}
	if rows[1].MitreTactic != "Persistence" || rows[1].MitreCount != 1 {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
}

func TestMitreCorrelationSkipsIncompleteEvents(t *testing.T) {
	events := []*models.WazuhEvent{
		{RuleMitreTactic: "Execution", RuleMitreTechnique: "", RuleMitreID: "T1059"},
		{RuleMitreTactic: "", RuleMitreTechnique: "T1059", RuleMitreID: "T1059"},
		{RuleMitreTactic: "Execution", RuleMitreTechnique: "T1059", RuleMitreID: ""},
	}

	if rows := MitreCorrelation(events); len(rows) != 0 {
		t.Fatalf("expected no rows for incomplete events, got %+v", rows)
	}
}
