package reduce

import (
	"testing"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

func TestExtractCVE(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Exploit attempt matching CVE-2024-12345 detected", "CVE-2024-12345", true},
		{"CVE-2021-4444", "CVE-2021-4444", true},
		{"prefix CVE-2019-1234567 suffix", "CVE-2019-1234567", true},
		{"CVE-24-1234 malformed year", "", false},
		{"no reference here", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractCVE(c.text)
		if ok != c.ok || got != c.want {
			t.Fatalf("ExtractCVE(%q) = %q, %v; want %q, %v", c.text, got, ok, c.want, c.ok)
		}
	}
}

func TestCVECountsPrefersTacticField(t *testing.T) {
	events := []*models.WazuhEvent{
		{RuleMitreTactic: "CVE-2024-0001", RuleDescription: "CVE-2024-9999 in text"},
		{RuleMitreTactic: "CVE-2024-0001", RuleDescription: ""},
		{RuleMitreTactic: "Execution", RuleDescription: "matched CVE-2023-5555"},
		{RuleMitreTactic: "", RuleDescription: "nothing to see"},
	}

	counts := CVECounts(events)
	if len(counts) != 2 {
		t.Fatalf("expected 2 CVEs, got %d", len(counts))
	}
	if counts[0].CVEName != "CVE-2024-0001" || counts[0].Count != 2 {
		t.Fatalf("unexpected first entry %+v", counts[0])
	}
	if counts[1].CVEName != "CVE-2023-5555" || counts[1].Count != 1 {
		t.Fatalf("unexpected second entry %+v", counts[1])
	}
}

func TestCVECountsTieBreaksByFirstSeen(t *testing.T) {
	events := []*models.WazuhEvent{
		{RuleDescription: "CVE-2020-1111"},
		{RuleDescription: "CVE-2020-2222"},
	}

	counts := CVECounts(events)
	if counts[0].CVEName != "CVE-2020-1111" || counts[1].CVEName != "CVE-2020-2222" {
		t.Fatalf("tie not broken by first-seen order: %+v", counts)
	}
}
