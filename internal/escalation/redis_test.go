package escalation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
)

// newTestRedisStore connects to a local Redis and removes test subjects
// before and after the test. Tests that call this helper require a running
// Redis on localhost:6379.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	clean := func() {
		iter := client.Scan(ctx, 0, SubjectPrefix+"{*:test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})
	return NewRedisStore(client)
}

func TestRedisStore_EmptySnapshot(t *testing.T) {
	store := newTestRedisStore(t)

	snap, err := store.Snapshot(context.Background(), User("test_empty"))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap != (Snapshot{}) {
		t.Errorf("Snapshot = %+v, want zero", snap)
	}
}

func TestRedisStore_ReportsDeduplicated(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := Post("test_dedupe")

	counted, err := store.AddReport(ctx, s, "alice")
	if err != nil || !counted {
		t.Fatalf("first AddReport = %v, %v", counted, err)
	}
	counted, err = store.AddReport(ctx, s, "alice")
	if err != nil || counted {
		t.Fatalf("repeat AddReport = %v, %v; want not counted", counted, err)
	}
	if _, err := store.AddReport(ctx, s, "bob"); err != nil {
		t.Fatal(err)
	}

	snap, err := store.Snapshot(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Reports != 2 {
		t.Errorf("Reports = %d, want 2", snap.Reports)
	}
}

func TestRedisStore_ConcurrentReports(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := User("test_concurrent")

	const reporters = 40
	var wg sync.WaitGroup
	for i := 0; i < reporters; i++ {
		for dup := 0; dup < 2; dup++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				if _, err := store.AddReport(ctx, s, fmt.Sprintf("r%d", id)); err != nil {
					t.Error(err)
				}
			}(i)
		}
	}
	wg.Wait()

	snap, err := store.Snapshot(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Reports != reporters {
		t.Errorf("Reports = %d, want %d", snap.Reports, reporters)
	}
}

func TestRedisStore_AdvanceOnlyForward(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := Peak("test_advance")

	prev, changed, err := store.AdvanceStatus(ctx, s, StatusRestricted)
	if err != nil || !changed || prev != StatusActive {
		t.Fatalf("AdvanceStatus(restricted) = %v, %v, %v", prev, changed, err)
	}
	prev, changed, err = store.AdvanceStatus(ctx, s, StatusWarned)
	if err != nil || changed || prev != StatusRestricted {
		t.Fatalf("AdvanceStatus(warned) = %v, %v, %v; want no change", prev, changed, err)
	}
	if err := store.Reinstate(ctx, s, StatusActive); err != nil {
		t.Fatal(err)
	}
	snap, err := store.Snapshot(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != StatusActive {
		t.Errorf("status after reinstate = %v, want active", snap.Status)
	}
}

func TestRedisStore_EngineEndToEnd(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := User("test_engine")

	for i := 0; i < 2; i++ {
		if err := store.AddViolation(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	e := NewEngine(store, testPolicy)
	res, err := e.CheckUser(ctx, "test_engine")
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != ActionRestrict || res.Violations != 2 {
		t.Errorf("got %+v, want restrict with 2 violations", res)
	}
}
