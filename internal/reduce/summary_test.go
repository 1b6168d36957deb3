package reduce

import (
	"testing"
	"time"

	"github.com/YuCheng1122/threat-graph/pkg/models"
)

func TestDetermineOS(t *testing.T) {
	cases := []struct {
		osName string
		want   string
	}{
		{"Microsoft Windows Server 2019", OSWindows},
		{"windows 11", OSWindows},
		{"Ubuntu 22.04 LTS", OSLinux},
		{"Red Hat Enterprise Linux", OSLinux},
		{"CentOS 7", OSLinux},
		{"Debian GNU", OSLinux},
		{"macOS Sonoma", OSMacOS},
		{"Darwin Kernel", OSMacOS},
		{"FreeBSD 14", OSOther},
		{"", OSOther},
	}
	for _, c := range cases {
		if got := DetermineOS(c.osName); got != c.want {
			t.Fatalf("DetermineOS(%q) = %q, want %q", c.osName, got, c.want)
		}
	}
}

func TestLatestByNameKeepsNewestHeartbeat(t *testing.T) {
	older := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	agents := []*models.Agent{
		{AgentID: "001", AgentName: "web-01", AgentStatus: "disconnected", LastKeepAlive: older},
		{AgentID: "007", AgentName: "web-01", AgentStatus: "active", LastKeepAlive: newer},
		{AgentID: "002", AgentName: "db-01", AgentStatus: "active", LastKeepAlive: older},
	}

	latest := LatestByName(agents)
	if len(latest) != 2 {
		t.Fatalf("expected 2 distinct names, got %d", len(latest))
	}
	if latest[0].AgentID != "007" {
		t.Fatalf("expected newest record for web-01, got agent %s", latest[0].AgentID)
	}
	if latest[1].AgentName != "db-01" {
		t.Fatalf("expected db-01 second, got %s", latest[1].AgentName)
	}
}

func TestSummarizeFixedRows(t *testing.T) {
	agents := []*models.Agent{
		{AgentName: "w1", OS: "Windows 10", AgentStatus: "Active"},
		{AgentName: "w2", OS: "Windows 10", AgentStatus: "disconnected"},
		{AgentName: "l1", OS: "Ubuntu 22.04", AgentStatus: "active"},
		{AgentName: "m1", OS: "macOS", AgentStatus: "never_connected"},
		{AgentName: "o1", OS: "FreeBSD", AgentStatus: "active"},
	}

	rows := Summarize(agents)
	if len(rows) != 8 {
		t.Fatalf("expected 8 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.ID != i+1 {
			t.Fatalf("row %d: expected id %d, got %d", i, i+1, row.ID)
		}
	}

	want := map[string]int{
		"Active agents":         3,
		"Total agents":          5,
		"Active Windows agents": 1,
		"Windows agents":        2,
		"Active Linux agents":   1,
		"Linux agents":          1,
		"Active MacOS agents":   0,
		"MacOS agents":          1,
	}
	for _, row := range rows {
		if want[row.AgentName] != row.Data {
			t.Fatalf("%s: expected %d, got %d", row.AgentName, want[row.AgentName], row.Data)
		}
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	rows := Summarize(nil)
	if len(rows) != 8 {
		t.Fatalf("expected 8 zero rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Data != 0 {
			t.Fatalf("%s: expected 0, got %d", row.AgentName, row.Data)
		}
	}
}
