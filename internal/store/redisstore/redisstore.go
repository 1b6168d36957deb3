// Package redisstore implements the persistence gateway over Redis.
// Records live as JSON documents indexed by monthly sorted sets scored
// with the record timestamp, so range queries read only the partitions
// the requested window covers.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/YuCheng1122/threat-graph/internal/errs"
	"github.com/YuCheng1122/threat-graph/internal/logger"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// Config configures Redis access for the event store.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store is a Redis-backed gateway.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "threatgraph:store"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis event store: %w", errs.ErrBackendUnavailable)
	}

	return &Store{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix)}, nil
}

type envelope struct {
	DataType string          `json:"data_type"`
	Doc      json.RawMessage `json:"doc"`
}

func (s *Store) indexKey(partition string) string {
	return s.prefix + ":" + partition + ":idx"
}

func (s *Store) docKey(partition, id string) string {
	return s.prefix + ":" + partition + ":doc:" + id
}

func (s *Store) metaKey(partition string) string {
	return s.prefix + ":" + partition + ":meta"
}

func (s *Store) writeDoc(ctx context.Context, partition, id string, rec models.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", rec.DataType(), err)
	}
	body, err := json.Marshal(envelope{DataType: rec.DataType(), Doc: doc})
	if err != nil {
		return fmt.Errorf("marshal document envelope: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.docKey(partition, id), body, 0)
	pipe.ZAdd(ctx, s.indexKey(partition), redis.Z{
		Score:  float64(rec.RecordTime().UnixMilli()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write %s document: %w", rec.DataType(), errs.ErrBackendUnavailable)
	}
	return nil
}

// UpsertAgent overwrites the agent document keyed by agent_id; posting
// the same id again replaces the previous state.
func (s *Store) UpsertAgent(ctx context.Context, agent models.Agent) error {
	if agent.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	partition := store.PartitionFor(agent.LastKeepAlive)
	return s.writeDoc(ctx, partition, "agent:"+agent.AgentID, &agent)
}

// AppendEvent stores one event under a fresh document id.
func (s *Store) AppendEvent(ctx context.Context, ev models.WazuhEvent) error {
	partition := store.PartitionFor(ev.Timestamp)
	return s.writeDoc(ctx, partition, newDocID(), &ev)
}

// AppendDetection stores one detection record. The partition marker is
// created with SETNX so concurrent first writers both succeed.
func (s *Store) AppendDetection(ctx context.Context, det models.Record) error {
	partition := store.PartitionFor(det.RecordTime())
	if err := s.client.SetNX(ctx, s.metaKey(partition), det.DataType(), 0).Err(); err != nil {
		return fmt.Errorf("init detection partition %s: %w", partition, errs.ErrBackendUnavailable)
	}
	return s.writeDoc(ctx, partition, newDocID(), det)
}

// Search scans the partitions covering the filter range, applying the
// filter before any record leaves this layer. Documents that fail to
// decode are skipped and logged rather than failing the query.
func (s *Store) Search(ctx context.Context, req store.Request) (*store.Result, error) {
	if req.Filter.MatchNone {
		return &store.Result{}, nil
	}

	var hits []models.Record
	min := fmt.Sprintf("%d", req.Filter.Start.UnixMilli())
	max := fmt.Sprintf("%d", req.Filter.End.UnixMilli())

	for _, partition := range store.PartitionsFor(req.Filter.Start, req.Filter.End) {
		ids, err := s.client.ZRangeByScore(ctx, s.indexKey(partition), &redis.ZRangeBy{
			Min: min,
			Max: max,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("scan partition %s: %w", partition, errs.ErrBackendUnavailable)
		}
		for _, id := range ids {
			body, err := s.client.Get(ctx, s.docKey(partition, id)).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read document %s: %w", id, errs.ErrBackendUnavailable)
			}
			rec, err := decodeEnvelope([]byte(body))
			if err != nil {
				logger.Warnf("Skipping undecodable document %s in %s: %v", id, partition, err)
				continue
			}
			if req.Filter.Matches(rec) {
				hits = append(hits, rec)
			}
		}
	}

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

// Close releases Redis resources.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func newDocID() string {
	return uuid.NewString()
}

func decodeEnvelope(body []byte) (models.Record, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.DataType {
	case models.DataTypeAgentInfo:
		var a models.Agent
		if err := json.Unmarshal(env.Doc, &a); err != nil {
			return nil, fmt.Errorf("decode agent document: %w", err)
		}
		return &a, nil
	case models.DataTypeWazuhEvent:
		var e models.WazuhEvent
		if err := json.Unmarshal(env.Doc, &e); err != nil {
			return nil, fmt.Errorf("decode event document: %w", err)
		}
		return &e, nil
	case models.DataTypeRDSDetection:
		var d models.RDSDetection
		if err := json.Unmarshal(env.Doc, &d); err != nil {
			return nil, fmt.Errorf("decode rds document: %w", err)
		}
		return &d, nil
	case models.DataTypeModbusEvent:
		var m models.ModbusEvent
		if err := json.Unmarshal(env.Doc, &m); err != nil {
			return nil, fmt.Errorf("decode modbus document: %w", err)
		}
		return &m, nil
	}
	return nil, fmt.Errorf("unknown data type %q", env.DataType)
}
