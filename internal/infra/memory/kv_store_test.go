package memory

import (
	"context"
	"testing"
)

func TestKVStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	if _, ok, _ := store.Get(ctx, "session"); ok {
		t.Fatalf("expected empty store")
	}
	if err := store.Set(ctx, "session", `{"username":"alice"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := store.Get(ctx, "session")
	if err != nil || !ok || value != `{"username":"alice"}` {
		t.Fatalf("unexpected get result %q ok=%v err=%v", value, ok, err)
	}

	if err := store.Remove(ctx, "session"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected key removed")
	}
}
