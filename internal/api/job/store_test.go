package job

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/specforge/internal/core"
)

func TestCreateAndGet(t *testing.T) {
	store := NewStore(10, time.Hour)

	created := store.Create("backtest_generate")
	if created.ID == "" || created.Status != StatusPending {
		t.Fatalf("created = %+v", created)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID || got.Type != "backtest_generate" {
		t.Errorf("got = %+v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	store := NewStore(10, time.Hour)
	_, err := store.Get("nope")
	if !errors.Is(err, core.ErrJobNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewStore(10, time.Hour)
	created := store.Create("agent_generate")

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	got.Status = StatusFailed

	again, err := store.Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != StatusPending {
		t.Errorf("stored job was mutated through the copy: %+v", again)
	}
}

func TestUpdate(t *testing.T) {
	store := NewStore(10, time.Hour)
	created := store.Create("backtest_generate")

	err := store.Update(created.ID, func(j *Job) {
		j.Status = StatusComplete
		j.Result = map[string]any{"ok": true}
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusComplete || got.Result == nil {
		t.Errorf("got = %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt not refreshed: %+v", got)
	}

	if err := store.Update("nope", func(j *Job) {}); !errors.Is(err, core.ErrJobNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	store := NewStore(2, time.Hour)
	first := store.Create("a")
	store.Create("b")
	third := store.Create("c")

	if store.Count() != 2 {
		t.Errorf("count = %d", store.Count())
	}
	if _, err := store.Get(first.ID); !errors.Is(err, core.ErrJobNotFound) {
		t.Error("oldest job should be evicted")
	}
	if _, err := store.Get(third.ID); err != nil {
		t.Errorf("newest job missing: %v", err)
	}
}

func TestSweepDropsExpired(t *testing.T) {
	store := NewStore(10, time.Millisecond)
	store.Create("a")
	store.Create("b")
	time.Sleep(5 * time.Millisecond)
	fresh := store.Create("c")

	removed := store.Sweep()
	if removed != 2 {
		t.Errorf("removed = %d", removed)
	}
	if store.Count() != 1 {
		t.Errorf("count = %d", store.Count())
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Errorf("fresh job missing: %v", err)
	}
}

func TestList(t *testing.T) {
	store := NewStore(10, time.Hour)
	store.Create("a")
	store.Create("b")

	jobs := store.List()
	if len(jobs) != 2 {
		t.Errorf("jobs = %v", jobs)
	}
}
