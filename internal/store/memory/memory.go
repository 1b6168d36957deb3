// Package memory implements the persistence gateway over in-process
// maps. It backs standalone deployments and the test suite; the
// matching and bucket-ordering semantics are the reference behavior
// other gateways must reproduce.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/YuCheng1122/threat-graph/internal/errs"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

type doc struct {
	id  string
	rec models.Record
}

type partition struct {
	docs []doc
	// agents indexes agent docs by agent_id for idempotent upserts.
	agents map[string]int
}

// Store is an in-memory gateway. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	// order preserves partition creation order for deterministic scans
	// within equal timestamps.
	order []string
}

// New creates an empty store.
func New() *Store {
	return &Store{partitions: make(map[string]*partition)}
}

func (s *Store) partitionLocked(key string) *partition {
	p, ok := s.partitions[key]
	if !ok {
		p = &partition{agents: make(map[string]int)}
		s.partitions[key] = p
		s.order = append(s.order, key)
	}
	return p
}

// UpsertAgent overwrites the agent record keyed by agent_id within the
// partition of its keep-alive timestamp.
func (s *Store) UpsertAgent(ctx context.Context, agent models.Agent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upsert agent %s: %w", agent.AgentID, errs.ErrBackendUnavailable)
	}
	if agent.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.partitionLocked(store.PartitionFor(agent.LastKeepAlive))
	rec := agent
	if idx, ok := p.agents[agent.AgentID]; ok {
		p.docs[idx].rec = &rec
		return nil
	}
	p.agents[agent.AgentID] = len(p.docs)
	p.docs = append(p.docs, doc{id: agent.AgentID, rec: &rec})
	return nil
}

// AppendEvent stores one event under a fresh document id.
func (s *Store) AppendEvent(ctx context.Context, ev models.WazuhEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append event: %w", errs.ErrBackendUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.partitionLocked(store.PartitionFor(ev.Timestamp))
	rec := ev
	p.docs = append(p.docs, doc{id: uuid.NewString(), rec: &rec})
	return nil
}

// AppendDetection stores one detection record, creating its partition
// if absent. Creation is idempotent: concurrent first writers both
// succeed.
func (s *Store) AppendDetection(ctx context.Context, det models.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append detection: %w", errs.ErrBackendUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.partitionLocked(store.PartitionFor(det.RecordTime()))
	p.docs = append(p.docs, doc{id: uuid.NewString(), rec: det})
	return nil
}

// Search executes the request over the partitions covering the
// filter's time range. The filter is applied during the scan, before
// anything is returned.
func (s *Store) Search(ctx context.Context, req store.Request) (*store.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", errs.ErrBackendUnavailable)
	}
	if req.Filter.MatchNone {
		return &store.Result{}, nil
	}

	s.mu.RLock()
	var hits []models.Record
	for _, key := range store.PartitionsFor(req.Filter.Start, req.Filter.End) {
		p, ok := s.partitions[key]
		if !ok {
			continue
		}
		for _, d := range p.docs {
			if req.Filter.Matches(d.rec) {
				hits = append(hits, d.rec)
			}
		}
	}
	s.mu.RUnlock()

	if req.SortTimeDesc {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].RecordTime().After(hits[j].RecordTime())
		})
	}

	res := &store.Result{}
	if req.GroupBy != "" {
		res.Buckets = store.TermsBuckets(hits, req.GroupBy)
	}
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	res.Hits = hits
	return res, nil
}
