package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateRegistry shares per-instance connection state across processes.
// Transport workers publish their state here with a TTL; dispatcher replicas
// read it before touching the transport. A missing or expired key reads as
// disconnected, which is the safe default for the backpressure rule.
type StateRegistry struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStateRegistry(rdb *redis.Client, ttl time.Duration) *StateRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StateRegistry{rdb: rdb, ttl: ttl}
}

func stateKey(instanceID string) string {
	return fmt.Sprintf("chatrelay:conn:%s", instanceID)
}

// Publish records the current state for an instance. Transports call this on
// every connection event and periodically as a heartbeat.
func (s *StateRegistry) Publish(ctx context.Context, instanceID string, state ConnectionState) error {
	return s.rdb.Set(ctx, stateKey(instanceID), string(state), s.ttl).Err()
}

func (s *StateRegistry) Get(ctx context.Context, instanceID string) (ConnectionState, error) {
	val, err := s.rdb.Get(ctx, stateKey(instanceID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StateDisconnected, nil
		}
		return StateDisconnected, err
	}

	switch ConnectionState(val) {
	case StateConnected, StateConnecting, StateDisconnected:
		return ConnectionState(val), nil
	default:
		return StateDisconnected, nil
	}
}
