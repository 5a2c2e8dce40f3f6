package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// flakyGetter fails its first n reads, then serves from a fixed map.
type flakyGetter struct {
	failures int
	calls    int
	data     map[string]string
}

func (g *flakyGetter) Get(_ context.Context, key string) *redis.StringCmd {
	g.calls++
	if g.failures > 0 {
		g.failures--
		return redis.NewStringResult("", errors.New("connection reset by peer"))
	}
	if val, ok := g.data[key]; ok {
		return redis.NewStringResult(val, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func TestRedisBackingRetriesTransientReadOnce(t *testing.T) {
	userID := uuid.New()
	getter := &flakyGetter{
		failures: 1,
		data:     map[string]string{keyPrefix + sessionKey(userID): `{"groupid":"` + uuid.Nil.String() + `"}`},
	}
	backing := &redisBacking{ctx: context.Background(), cmd: getter}

	data, present, err := backing.get(sessionKey(userID))
	if err != nil {
		t.Fatalf("get after one transient failure: %v", err)
	}
	if !present || len(data) == 0 {
		t.Error("entry must be served by the retried read")
	}
	if getter.calls != 2 {
		t.Errorf("calls = %d, want 2 (initial + one retry)", getter.calls)
	}
}

func TestRedisBackingSurfacesPersistentFailure(t *testing.T) {
	getter := &flakyGetter{failures: 2}
	backing := &redisBacking{ctx: context.Background(), cmd: getter}

	_, _, err := backing.get(sessionKey(uuid.New()))
	if err == nil {
		t.Fatal("persistent backend failure must surface")
	}
	if getter.calls != 2 {
		t.Errorf("calls = %d, want exactly one retry", getter.calls)
	}
}

func TestRedisBackingMissIsNotRetried(t *testing.T) {
	getter := &flakyGetter{}
	backing := &redisBacking{ctx: context.Background(), cmd: getter}

	_, present, err := backing.get(sessionKey(uuid.New()))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if present {
		t.Error("missing key reported as present")
	}
	if getter.calls != 1 {
		t.Errorf("calls = %d, a miss is not transient", getter.calls)
	}
}
