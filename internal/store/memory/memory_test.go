package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YuCheng1122/threat-graph/internal/authz"
	"github.com/YuCheng1122/threat-graph/internal/errs"
	"github.com/YuCheng1122/threat-graph/internal/query"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

var (
	searchStart = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	searchEnd   = time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
)

func eventFilter(t *testing.T, extra query.Extra) query.Filter {
	t.Helper()
	f, err := query.Build(searchStart, searchEnd, authz.Unrestricted(), models.DataTypeWazuhEvent, extra)
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	return f
}

func TestUpsertAgentIdempotentByID(t *testing.T) {
	s := New()
	ctx := context.Background()
	keepAlive := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.UpsertAgent(ctx, models.Agent{
			AgentID: "001", AgentName: "web-01", AgentStatus: "active", LastKeepAlive: keepAlive,
		})
		if err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	f, err := query.Build(searchStart, searchEnd, authz.Unrestricted(), models.DataTypeAgentInfo, query.Extra{})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	res, err := s.Search(ctx, store.Request{Filter: f})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("expected 1 agent record after repeated upserts, got %d", len(res.Hits))
	}
}

func TestUpsertAgentRequiresID(t *testing.T) {
	s := New()
	err := s.UpsertAgent(context.Background(), models.Agent{AgentName: "web-01"})
	if err == nil {
		t.Fatalf("expected error for missing agent_id")
	}
}

func TestSearchSpansMonthlyPartitions(t *testing.T) {
	s := New()
	ctx := context.Background()

	april := models.WazuhEvent{Timestamp: time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), RuleLevel: 5}
	may := models.WazuhEvent{Timestamp: time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC), RuleLevel: 5}
	june := models.WazuhEvent{Timestamp: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), RuleLevel: 5}
	for _, ev := range []models.WazuhEvent{april, may, june} {
		if err := s.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	res, err := s.Search(ctx, store.Request{Filter: eventFilter(t, query.Extra{})})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Hits) != 3 {
		t.Fatalf("expected 3 hits across partitions, got %d", len(res.Hits))
	}
}

func TestSearchMatchNoneReturnsEmpty(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.AppendEvent(ctx, models.WazuhEvent{Timestamp: searchStart.Add(time.Hour), GroupName: "threathunting"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := query.Build(searchStart, searchEnd, authz.Restricted(nil), models.DataTypeWazuhEvent, query.Extra{})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	res, err := s.Search(ctx, store.Request{Filter: f})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Hits) != 0 || len(res.Buckets) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestSearchBucketOrderDeterministic(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := searchStart.Add(time.Hour)

	seed := func(tactic string, n int) {
		for i := 0; i < n; i++ {
			if err := s.AppendEvent(ctx, models.WazuhEvent{Timestamp: at, RuleMitreTactic: tactic}); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
	}
	seed("Persistence", 2)
	seed("Execution", 3)
	seed("Impact", 2)

	res, err := s.Search(ctx, store.Request{Filter: eventFilter(t, query.Extra{}), GroupBy: "rule_mitre_tactic"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []store.Bucket{{Key: "Execution", Count: 3}, {Key: "Persistence", Count: 2}, {Key: "Impact", Count: 2}}
	if len(res.Buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(res.Buckets))
	}
	for i, b := range want {
		if res.Buckets[i] != b {
			t.Fatalf("bucket %d: expected %+v, got %+v", i, b, res.Buckets[i])
		}
	}
}

func TestSearchSortAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ev := models.WazuhEvent{
			Timestamp: searchStart.Add(time.Duration(i) * time.Hour),
			AgentID:   "001",
			RuleLevel: 10,
		}
		if err := s.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	res, err := s.Search(ctx, store.Request{Filter: eventFilter(t, query.Extra{}), SortTimeDesc: true, Limit: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(res.Hits))
	}
	if !res.Hits[0].RecordTime().After(res.Hits[1].RecordTime()) {
		t.Fatalf("hits not sorted newest first")
	}
}

func TestCancelledContextSurfacesBackendUnavailable(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.AppendEvent(ctx, models.WazuhEvent{Timestamp: searchStart}); !errors.Is(err, errs.ErrBackendUnavailable) {
		t.Fatalf("append: expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := s.Search(ctx, store.Request{Filter: eventFilter(t, query.Extra{})}); !errors.Is(err, errs.ErrBackendUnavailable) {
		t.Fatalf("search: expected ErrBackendUnavailable, got %v", err)
	}
}

func TestConcurrentDetectionAppends(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			det := &models.RDSDetection{Timestamp: at, Account: "acme", Score: 5}
			if err := s.AppendDetection(ctx, det); err != nil {
				t.Errorf("append detection: %v", err)
			}
		}()
	}
	wg.Wait()

	f, err := query.Build(searchStart, searchEnd, authz.Unrestricted(), models.DataTypeRDSDetection, query.Extra{})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	res, err := s.Search(ctx, store.Request{Filter: f})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Hits) != 16 {
		t.Fatalf("expected 16 detections, got %d", len(res.Hits))
	}
}
