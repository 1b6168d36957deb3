// Package store defines the persistence gateway contract the
// aggregation layer consumes. Implementations execute a built filter
// against a concrete backend; the core never post-filters unscoped
// data.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/YuCheng1122/threat-graph/internal/query"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// Request describes one search execution: a filter plus optional
// sorting, limiting, and a terms-style aggregation.
type Request struct {
	Filter query.Filter

	// Limit bounds the number of hits returned; 0 means the backend
	// default.
	Limit int

	// SortTimeDesc returns hits newest first.
	SortTimeDesc bool

	// GroupBy names a field to bucket hits by instead of (or in
	// addition to) returning them. Bucket order is count descending,
	// ties broken by first-seen order.
	GroupBy string
}

// Bucket is one terms-aggregation bucket.
type Bucket struct {
	Key   string
	Count int
}

// Result carries raw hits and, when requested, aggregation buckets.
type Result struct {
	Hits    []models.Record
	Buckets []Bucket
}

// Gateway is the narrow interface between the aggregation core and the
// event store. Any backend satisfying it is acceptable. Failures
// surface as errs.ErrBackendUnavailable, never as silently empty
// results.
type Gateway interface {
	Search(ctx context.Context, req Request) (*Result, error)
	// UpsertAgent overwrites the record keyed by agent_id.
	UpsertAgent(ctx context.Context, agent models.Agent) error
	// AppendEvent stores one event; events are never mutated.
	AppendEvent(ctx context.Context, ev models.WazuhEvent) error
	// AppendDetection stores one detection-family record, creating its
	// partition if absent. Initialization is idempotent under
	// concurrent first use.
	AppendDetection(ctx context.Context, det models.Record) error
}

// TermsBuckets tallies hits by field value, skipping records without
// the field. Order is count descending, ties broken by first-seen scan
// order; gateways share this so bucket ordering stays deterministic
// across backends.
func TermsBuckets(hits []models.Record, field string) []Bucket {
	counts := make(map[string]int, 32)
	firstSeen := make(map[string]int, 32)
	for _, rec := range hits {
		key := rec.Field(field)
		if key == "" {
			continue
		}
		if _, ok := counts[key]; !ok {
			firstSeen[key] = len(firstSeen)
		}
		counts[key]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for key, count := range counts {
		buckets = append(buckets, Bucket{Key: key, Count: count})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return firstSeen[buckets[i].Key] < firstSeen[buckets[j].Key]
	})
	return buckets
}

// PartitionFor resolves the storage partition for a record timestamp.
// Partitions are keyed by the record's own time, not the wall clock at
// write time, so late or replayed data lands where its range queries
// will look.
func PartitionFor(ts time.Time) string {
	return ts.UTC().Format("2006_01")
}

// PartitionsFor enumerates the monthly partitions covering a query's
// requested range, in chronological order.
func PartitionsFor(start, end time.Time) []string {
	if end.Before(start) {
		return nil
	}
	var out []string
	cur := time.Date(start.UTC().Year(), start.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.UTC().Year(), end.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		out = append(out, cur.Format("2006_01"))
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}
