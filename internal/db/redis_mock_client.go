package db

import (
	"context"
	"encoding"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient implements the LimitedRedisClient interface in memory.
// Only suitable for testing and local development.
// The value set for the IntCmd or similar results is always 1 regardless of how many records were affected.
// Contexts are completely ignored.
type MockRedisClient struct {
	lock     sync.Mutex
	store    map[string]map[string]string
	expiries map[string]time.Time
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]map[string]string{}, expiries: map[string]time.Time{}}
}

func NewMockRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	options = append([]RedisAdapterOption{withClient(NewMockRedisClient())}, options...)
	return NewRedisAdapter(options...)
}

func convertValuesToMap(values ...any) (map[string]string, error) {
	if len(values)%2 != 0 {
		return map[string]string{}, fmt.Errorf("number of provided values must be even")
	}
	output := map[string]string{}
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return map[string]string{}, fmt.Errorf("hash field names must be strings, got %T", values[i])
		}
		switch val := values[i+1].(type) {
		case string:
			output[key] = val
		case encoding.TextMarshaler:
			raw, err := val.MarshalText()
			if err != nil {
				return map[string]string{}, err
			}
			output[key] = string(raw)
		default:
			output[key] = fmt.Sprint(val)
		}
	}
	return output, nil
}

// expire drops the key if its expiry has passed, the lock has to be held
func (m *MockRedisClient) expire(key string) {
	expiresAt, found := m.expiries[key]
	if found && time.Now().After(expiresAt) {
		delete(m.store, key)
		delete(m.expiries, key)
	}
}

func (m *MockRedisClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	res := redis.IntCmd{}
	val, err := convertValuesToMap(values...)
	if err != nil {
		res.SetErr(err)
		return &res
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.expire(key)
	existing, found := m.store[key]
	if !found {
		existing = map[string]string{}
		m.store[key] = existing
	}
	for k, v := range val {
		existing[k] = v
	}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	res := redis.MapStringStringCmd{}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.expire(key)
	output := map[string]string{}
	for k, v := range m.store[key] {
		output[k] = v
	}
	res.SetVal(output)
	return &res
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.store, k)
		delete(m.expiries, k)
	}
	res := redis.IntCmd{}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) ExpireAt(_ context.Context, key string, tm time.Time) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	if _, found := m.store[key]; !found {
		res.SetVal(false)
		return &res
	}
	m.expiries[key] = tm
	res.SetVal(true)
	return &res
}
