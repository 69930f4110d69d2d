package intakesvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redisdal "github.com/prontoa/order/internal/dal/redis"
)

const (
	lockTTL          = 30 * time.Second
	lockWait         = 5 * time.Second
	lockPollInterval = 100 * time.Millisecond
)

// ErrConversationBusy means another message of the same conversation is
// still being processed and the wait for the lock ran out.
var ErrConversationBusy = errors.New("conversation is busy")

// locker serializes message processing per conversation. Messages of
// different conversations proceed in parallel.
type locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// redisLocker takes a short-lived lease in Redis so serialization holds
// across replicas.
type redisLocker struct {
	client *redisdal.Client
}

func newRedisLocker(client *redisdal.Client) *redisLocker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(lockWait)

	for {
		ok, err := l.client.RDB().SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire conversation lock: %w", err)
		}
		if ok {
			return func() {
				// Release only our own lease; an expired lock may have
				// been taken over by another worker.
				if current, err := l.client.RDB().Get(context.Background(), key).Result(); err == nil && current == token {
					l.client.RDB().Del(context.Background(), key)
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrConversationBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// localLocker is the single-process fallback used when no Redis client is
// configured, e.g. in tests.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()

	return m.Unlock, nil
}
