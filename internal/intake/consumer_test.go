package intake

import (
	"context"
	"testing"
	"time"

	"github.com/YuCheng1122/threat-graph/internal/authz"
	"github.com/YuCheng1122/threat-graph/internal/query"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/internal/store/memory"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

func testConsumer(t *testing.T) (*Consumer, *memory.Store) {
	t.Helper()
	st := memory.New()
	return &Consumer{gw: st}, st
}

func countStored(t *testing.T, st *memory.Store, dataType string, at time.Time) int {
	t.Helper()
	f, err := query.Build(at.Add(-time.Hour), at.Add(time.Hour), authz.Unrestricted(), dataType, query.Extra{})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	res, err := st.Search(context.Background(), store.Request{Filter: f})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	return len(res.Hits)
}

func TestHandleStoresEvent(t *testing.T) {
	c, st := testConsumer(t)
	payload := []byte(`{"data_type":"wazuh_events","timestamp":"2025-06-01T10:00:00Z","agent_id":"001","rule_id":"5710","rule_level":9,"rule_description":"sshd auth failure"}`)

	if err := c.handle(context.Background(), payload); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if got := countStored(t, st, models.DataTypeWazuhEvent, at); got != 1 {
		t.Fatalf("expected 1 stored event, got %d", got)
	}
}

func TestHandleUpsertsAgentByID(t *testing.T) {
	c, st := testConsumer(t)
	first := []byte(`{"data_type":"agent_info","agent_id":"001","agent_name":"web-01","agent_status":"disconnected","last_keep_alive":"2025-06-01T10:00:00Z"}`)
	second := []byte(`{"data_type":"agent_info","agent_id":"001","agent_name":"web-01","agent_status":"active","last_keep_alive":"2025-06-01T10:05:00Z"}`)

	if err := c.handle(context.Background(), first); err != nil {
		t.Fatalf("first heartbeat: %v", err)
	}
	if err := c.handle(context.Background(), second); err != nil {
		t.Fatalf("second heartbeat: %v", err)
	}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if got := countStored(t, st, models.DataTypeAgentInfo, at); got != 1 {
		t.Fatalf("expected single upserted agent record, got %d", got)
	}
}

func TestHandleRejectsMalformedPayloads(t *testing.T) {
	c, _ := testConsumer(t)
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"data_type":"mystery"}`},
		{"agent without id", `{"data_type":"agent_info","agent_name":"web-01"}`},
		{"event without timestamp", `{"data_type":"wazuh_events","agent_id":"001"}`},
	}
	for _, tc := range cases {
		if err := c.handle(context.Background(), []byte(tc.payload)); err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestHandleStoresDetections(t *testing.T) {
	c, st := testConsumer(t)
	rds := []byte(`{"data_type":"rds_detection","timestamp":"2025-06-01T10:00:00Z","account":"acme","file_name":"evil.exe","score":9}`)
	modbus := []byte(`{"data_type":"modbus_events","timestamp":"2025-06-01T10:00:00Z","device_id":"plc-3","event_type":"write","alert":"unexpected function code"}`)

	if err := c.handle(context.Background(), rds); err != nil {
		t.Fatalf("rds detection: %v", err)
	}
	if err := c.handle(context.Background(), modbus); err != nil {
		t.Fatalf("modbus event: %v", err)
	}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if got := countStored(t, st, models.DataTypeRDSDetection, at); got != 1 {
		t.Fatalf("expected 1 rds detection, got %d", got)
	}
	if got := countStored(t, st, models.DataTypeModbusEvent, at); got != 1 {
		t.Fatalf("expected 1 modbus event, got %d", got)
	}
}
