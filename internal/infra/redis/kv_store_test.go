package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

func TestKVStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewKVStore(newClient(mr), "quiz:kv:", 0)

	if _, ok, err := store.Get(ctx, "session"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "session", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("quiz:kv:session") {
		t.Fatalf("expected redis key to be set")
	}
	value, ok, err := store.Get(ctx, "session")
	if err != nil || !ok || value != "v1" {
		t.Fatalf("unexpected get %q ok=%v err=%v", value, ok, err)
	}

	if err := store.Remove(ctx, "session"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if mr.Exists("quiz:kv:session") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestKVStoreAppliesTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewKVStore(newClient(mr), "quiz:kv:", time.Hour)
	if err := store.Set(context.Background(), "session", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if mr.Exists("quiz:kv:session") {
		t.Fatalf("expected key to expire")
	}
}

func TestProfileStoreOverRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	kv := NewKVStore(newClient(mr), "quiz:kv:", 0)
	store := app.NewProfileStore(kv, "p1", time.Minute)

	if _, err := store.RecordQuizResult(ctx, "alice", domain.QuizResult{TotalQuestions: 4, CorrectAnswers: 3, WrongAnswers: 1, ScorePercentage: 75}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !mr.Exists("quiz:kv:profile:p1:userStats_alice") {
		t.Fatalf("expected stats stored under the profile keyspace, keys=%v", mr.Keys())
	}

	mr.Set("quiz:kv:profile:p1:session", "{not json")
	session, err := store.LoadSession(ctx)
	if err != nil || session != nil {
		t.Fatalf("expected corrupt session treated as absent, got %+v err=%v", session, err)
	}
	if mr.Exists("quiz:kv:profile:p1:session") {
		t.Fatalf("expected corrupt session removed")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
