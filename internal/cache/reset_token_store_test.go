package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestStore はminiredisを使用したテスト用ストアを生成する。
func newTestStore(t *testing.T, ttl time.Duration) (*ResetTokenStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewResetTokenStore(client, ttl), mr
}

func TestResetTokenStore_SaveAndConsume(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, "token-abc", 42); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	userID, ok, err := store.Consume(ctx, "token-abc")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected token to be found")
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestResetTokenStore_Consume_SingleUse(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, "token-once", 7); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	// 1回目の消費は成功する
	_, ok, err := store.Consume(ctx, "token-once")
	if err != nil {
		t.Fatalf("first Consume returned error: %v", err)
	}
	if !ok {
		t.Fatal("first Consume should find the token")
	}

	// 2回目の消費は失敗する（GETDELで削除済み）
	_, ok, err = store.Consume(ctx, "token-once")
	if err != nil {
		t.Fatalf("second Consume returned error: %v", err)
	}
	if ok {
		t.Error("second Consume should not find the token")
	}
}

func TestResetTokenStore_Consume_UnknownToken(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	_, ok, err := store.Consume(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if ok {
		t.Error("unknown token should not be found")
	}
}

func TestResetTokenStore_Consume_ExpiredToken(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "token-ttl", 9); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	// TTLを経過させる
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Consume(ctx, "token-ttl")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if ok {
		t.Error("expired token should behave like a token that never existed")
	}
}

func TestResetTokenStore_Save_SetsTTL(t *testing.T) {
	store, mr := newTestStore(t, 72*time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, "token-ttl-check", 1); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	ttl := mr.TTL(resetTokenPrefix + "token-ttl-check")
	if ttl != 72*time.Hour {
		t.Errorf("TTL = %v, want %v", ttl, 72*time.Hour)
	}
}

func TestResetTokenStore_KeyUsesPrefix(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, "token-prefix", 3); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if !mr.Exists("forgot-password:token-prefix") {
		t.Error("expected key with forgot-password: prefix")
	}
}
