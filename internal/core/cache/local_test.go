package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type overview struct {
	Files int64 `json:"files"`
}

func TestGetOrLoadJSONLocal(t *testing.T) {
	c := NewLocal(8, time.Minute)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (*overview, error) {
		calls++
		return &overview{Files: 3}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoadJSON(c, ctx, "stats:overview", time.Minute, load)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.Files != 3 {
			t.Fatalf("files = %d", got.Files)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times", calls)
	}

	_ = c.Delete(ctx, "stats:overview")
	if _, err := GetOrLoadJSON(c, ctx, "stats:overview", time.Minute, load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("delete did not invalidate, calls = %d", calls)
	}
}

func TestGetOrLoadJSONErrorNotCached(t *testing.T) {
	c := NewLocal(8, time.Minute)
	boom := errors.New("db down")
	_, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*overview, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("error result cached")
	}
}

func TestGetOrLoadJSONNil(t *testing.T) {
	c := NewLocal(8, time.Minute)
	got, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*overview, error) {
		return nil, nil
	})
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestLocalExpires(t *testing.T) {
	c := NewLocal(8, 20*time.Millisecond)
	ctx := context.Background()
	n := 0
	load := func(context.Context) ([]byte, error) { n++; return []byte("x"), nil }
	_, _ = c.GetOrLoad(ctx, "k", 0, load)
	time.Sleep(60 * time.Millisecond)
	_, _ = c.GetOrLoad(ctx, "k", 0, load)
	if n != 2 {
		t.Fatalf("entry did not expire, loads = %d", n)
	}
}

func TestGetOrLoadList(t *testing.T) {
	c := NewLocal(8, time.Minute)
	ctx := context.Background()
	got, err := GetOrLoadList(c, ctx, Key("stats", "hot_tags", "10"), time.Minute, func(context.Context) ([]overview, error) {
		return nil, nil
	})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %#v, %v", got, err)
	}
}

func TestGetOrLoadJSONStaleEntry(t *testing.T) {
	c := NewLocal(8, time.Minute)
	ctx := context.Background()
	key := Key("stats", "overview")
	if _, err := c.GetOrLoad(ctx, key, 0, func(context.Context) ([]byte, error) { return []byte(`{"files":"x"`), nil }); err != nil {
		t.Fatal(err)
	}
	got, err := GetOrLoadJSON(c, ctx, key, time.Minute, func(context.Context) (*overview, error) {
		return &overview{Files: 7}, nil
	})
	if err != nil || got == nil || got.Files != 7 {
		t.Fatalf("got %+v, %v", got, err)
	}
	if c.Len() != 0 {
		t.Fatalf("stale entry kept, len = %d", c.Len())
	}
}
