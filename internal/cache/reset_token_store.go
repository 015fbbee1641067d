package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// resetTokenPrefix はリセットトークンのキープレフィックス。
const resetTokenPrefix = "forgot-password:"

// ResetTokenStore はパスワードリセットトークンをRedisに保存する。
// トークンはTTL付きで保存され、期限が切れると自動的に消滅する。
type ResetTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResetTokenStore はResetTokenStoreを生成する。
func NewResetTokenStore(client *redis.Client, ttl time.Duration) *ResetTokenStore {
	return &ResetTokenStore{
		client: client,
		ttl:    ttl,
	}
}

// Save はトークンとユーザーIDの対応をTTL付きで保存する。
func (s *ResetTokenStore) Save(ctx context.Context, token string, userID int) error {
	if err := s.client.Set(ctx, resetTokenPrefix+token, userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}
	return nil
}

// Consume はトークンに対応するユーザーIDを取得し、同時にトークンを削除する。
// GETDELは単一の原子的コマンドのため、並行する2つのリクエストが
// 同じトークンを消費することはできない。
// トークンが存在しない（または期限切れの）場合はok=falseを返す。
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (int, bool, error) {
	val, err := s.client.GetDel(ctx, resetTokenPrefix+token).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to consume reset token: %w", err)
	}

	userID, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid reset token value %q: %w", val, err)
	}

	return userID, true, nil
}
