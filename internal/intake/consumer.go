// Package intake consumes raw records from a Redis list queue and
// writes them through the persistence gateway. Decoding is forgiving:
// a malformed message is counted and dropped, never stalling the
// queue.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/YuCheng1122/threat-graph/internal/logger"
	"github.com/YuCheng1122/threat-graph/internal/metrics"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// Config configures the intake consumer.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
}

// Consumer pops queued records and stores them.
type Consumer struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
	gw           store.Gateway
	metrics      *metrics.Metrics
}

// NewConsumer creates an intake consumer over the given gateway.
func NewConsumer(cfg Config, gw store.Gateway, m *metrics.Metrics) (*Consumer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("intake queue key is required")
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Consumer{
		client:       client,
		key:          cfg.Key,
		blockTimeout: cfg.BlockTimeout,
		gw:           gw,
		metrics:      m,
	}, nil
}

// Run pops and stores records until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		payload, err := c.pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Errorf("Intake pop failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if payload == nil {
			continue
		}
		if err := c.handle(ctx, payload); err != nil {
			logger.Warnf("Dropping intake message: %v", err)
			c.metrics.IncIntakeInvalid()
		}
	}
}

func (c *Consumer) pop(ctx context.Context) ([]byte, error) {
	res, err := c.client.BLPop(ctx, c.blockTimeout, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// handle decodes one message by its data_type discriminator and
// stores it.
func (c *Consumer) handle(ctx context.Context, payload []byte) error {
	var head struct {
		DataType string `json:"data_type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return fmt.Errorf("decode message head: %w", err)
	}

	switch head.DataType {
	case models.DataTypeAgentInfo:
		var agent models.Agent
		if err := json.Unmarshal(payload, &agent); err != nil {
			return fmt.Errorf("decode agent record: %w", err)
		}
		if agent.AgentID == "" {
			return fmt.Errorf("agent record missing agent_id")
		}
		if err := c.gw.UpsertAgent(ctx, agent); err != nil {
			return err
		}
	case models.DataTypeWazuhEvent:
		var ev models.WazuhEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode event record: %w", err)
		}
		if ev.Timestamp.IsZero() {
			return fmt.Errorf("event record missing timestamp")
		}
		if err := c.gw.AppendEvent(ctx, ev); err != nil {
			return err
		}
	case models.DataTypeRDSDetection:
		var det models.RDSDetection
		if err := json.Unmarshal(payload, &det); err != nil {
			return fmt.Errorf("decode rds detection: %w", err)
		}
		if err := c.gw.AppendDetection(ctx, &det); err != nil {
			return err
		}
	case models.DataTypeModbusEvent:
		var ev models.ModbusEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode modbus event: %w", err)
		}
		if err := c.gw.AppendDetection(ctx, &ev); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown data_type %q", head.DataType)
	}

	c.metrics.IncEventsIngested(1)
	return nil
}

// Close closes the underlying Redis client.
func (c *Consumer) Close() error {
	return c.client.Close()
}
