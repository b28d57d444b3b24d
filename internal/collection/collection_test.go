package collection_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pokequest/internal/collection"
	"pokequest/internal/keylock"
	"pokequest/internal/model"
	"pokequest/internal/store"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newCollectionStore(t *testing.T) (*collection.Store, store.Store) {
	t.Helper()
	kv, err := store.NewJSONStore(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	return collection.New(kv, keylock.New(), nil, collection.WithClock(func() time.Time { return fixedNow })), kv
}

func pikachu() model.CollectibleItem {
	return model.CollectibleItem{ID: 25, Name: "Pikachu", Category: "electric", ImageRef: "https://img/25.png", Description: "Mouse."}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()
	st, _ := newCollectionStore(t)

	got := st.Load(context.Background(), "ash")
	if got.Len() != 0 || got.Items == nil {
		t.Fatalf("expected empty non-nil collection, got %+v", got)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	t.Parallel()
	st, _ := newCollectionStore(t)
	ctx := context.Background()

	first, added, err := st.Add(ctx, "ash", pikachu(), model.AcquiredViaQuiz)
	if err != nil || !added {
		t.Fatalf("first Add() added=%v err=%v", added, err)
	}
	second, added, err := st.Add(ctx, "ash", pikachu(), model.AcquiredViaGoal)
	if err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	if added {
		t.Fatalf("second Add() should be a no-op")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("collection changed on duplicate add (-first +second):\n%s", diff)
	}

	want := model.Collection{Items: []model.OwnedItem{{
		CollectibleItem: pikachu(),
		AcquiredVia:     model.AcquiredViaQuiz,
		AcquiredAt:      fixedNow,
	}}}
	if diff := cmp.Diff(want, st.Load(ctx, "ash")); diff != "" {
		t.Fatalf("persisted collection mismatch (-want +got):\n%s", diff)
	}
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	st, _ := newCollectionStore(t)
	ctx := context.Background()

	for _, id := range []int{7, 1, 4, 1, 7} {
		if _, _, err := st.Add(ctx, "misty", model.CollectibleItem{ID: id}, model.AcquiredViaQuiz); err != nil {
			t.Fatalf("Add(%d) error = %v", id, err)
		}
	}
	got := st.Load(ctx, "misty")
	ids := make([]int, 0, got.Len())
	for _, item := range got.Items {
		ids = append(ids, item.ID)
	}
	if diff := cmp.Diff([]int{7, 1, 4}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedStateIsDiscarded(t *testing.T) {
	t.Parallel()
	st, kv := newCollectionStore(t)
	ctx := context.Background()

	if err := kv.WriteKey(ctx, "brock", collection.Key, []byte("][")); err != nil {
		t.Fatal(err)
	}
	if got := st.Load(ctx, "brock"); got.Len() != 0 {
		t.Fatalf("expected empty collection, got %+v", got)
	}
	next, added, err := st.Add(ctx, "brock", pikachu(), model.AcquiredViaQuiz)
	if err != nil || !added || next.Len() != 1 {
		t.Fatalf("Add() after malformed state: len=%d added=%v err=%v", next.Len(), added, err)
	}
}

func TestDuplicateIDsInStoredStateAreCollapsed(t *testing.T) {
	t.Parallel()
	st, kv := newCollectionStore(t)
	ctx := context.Background()

	raw := `{"items":[{"id":1,"name":"Bulbasaur"},{"id":1,"name":"Bulbasaur"},{"id":4,"name":"Charmander"}]}`
	if err := kv.WriteKey(ctx, "gary", collection.Key, []byte(raw)); err != nil {
		t.Fatal(err)
	}
	if got := st.Load(ctx, "gary"); got.Len() != 2 {
		t.Fatalf("expected 2 unique items, got %d", got.Len())
	}
}

func TestConcurrentAddsDoNotLoseWrites(t *testing.T) {
	t.Parallel()
	st, _ := newCollectionStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for id := 1; id <= 20; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, _, err := st.Add(ctx, "ash", model.CollectibleItem{ID: id}, model.AcquiredViaQuiz); err != nil {
				t.Errorf("Add(%d) error = %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	got := st.Load(ctx, "ash")
	if got.Len() != 20 {
		t.Fatalf("expected 20 items, got %d", got.Len())
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) ReadKey(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (failingStore) WriteKey(context.Context, string, string, []byte) error {
	return errors.New("disk full")
}

func TestAddReturnsPersistError(t *testing.T) {
	t.Parallel()
	st := collection.New(failingStore{}, nil, nil)

	got, added, err := st.Add(context.Background(), "ash", pikachu(), model.AcquiredViaQuiz)
	if err == nil {
		t.Fatalf("expected persist error")
	}
	if added || got.Len() != 0 {
		t.Fatalf("expected unchanged collection, got len=%d added=%v", got.Len(), added)
	}
}

func TestSetMirrorRefAndAll(t *testing.T) {
	t.Parallel()
	st, _ := newCollectionStore(t)
	ctx := context.Background()

	if _, _, err := st.Add(ctx, "ash", pikachu(), model.AcquiredViaGoal); err != nil {
		t.Fatal(err)
	}
	if _, _, err := st.Add(ctx, "misty", model.CollectibleItem{ID: 120}, model.AcquiredViaQuiz); err != nil {
		t.Fatal(err)
	}
	if err := st.SetMirrorRef(ctx, "ash", 25, "https://cdn/25.png"); err != nil {
		t.Fatalf("SetMirrorRef() error = %v", err)
	}

	all, err := st.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	want := map[string][]int{"ash": {25}, "misty": {120}}
	got := make(map[string][]int, len(all))
	for user, c := range all {
		for _, item := range c.Items {
			got[user] = append(got[user], item.ID)
		}
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("All() mismatch (-want +got):\n%s", diff)
	}
	if ref := all["ash"].Items[0].MirrorRef; ref != "https://cdn/25.png" {
		t.Fatalf("expected mirror ref to be stored, got %q", ref)
	}
}
