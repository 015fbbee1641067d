package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // 認証済みAPI全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // 認証済みAPI全般のバーストサイズ
	CredentialRate  rate.Limit    // 資格情報を扱う操作のレート（req/sec）。10/60
	CredentialBurst int           // 資格情報を扱う操作のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig は毎分あたりの上限からレート制限設定を生成する。
func NewRateLimiterConfig(generalPerMin, credentialPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMin) / 60.0),
		GeneralBurst:    generalPerMin,
		CredentialRate:  rate.Limit(float64(credentialPerMin) / 60.0),
		CredentialBurst: credentialPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、資格情報操作 10 req/min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 10)
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はクライアントごとのレート制限を管理する。
// 認証済みAPI全般（ユーザー単位）と資格情報操作（IP単位）の2種類を提供する。
// 資格情報操作はログイン前に実行されるため、ユーザーIDではなく
// 接続元IPをキーにする。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*clientLimiter

	credentialMu       sync.RWMutex
	credentialLimiters map[string]*clientLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:             config,
		generalLimiters:    make(map[string]*clientLimiter),
		credentialLimiters: make(map[string]*clientLimiter),
		stopCh:             make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware は認証済みAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにユーザーIDが含まれている必要がある（SessionMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResult(w, http.StatusUnauthorized, "認証が必要です。")
				return
			}

			key := strconv.Itoa(userID)
			limiter := rl.getOrCreateLimiter(&rl.generalMu, rl.generalLimiters, key,
				rl.config.GeneralRate, rl.config.GeneralBurst)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.Int("user_id", userID),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CredentialMiddleware は資格情報を扱う操作（登録・ログイン・パスワードリセット）
// 専用のレート制限ミドルウェアを返す。接続元IP単位で制限する。
func (rl *RateLimiter) CredentialMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limiter := rl.getOrCreateLimiter(&rl.credentialMu, rl.credentialLimiters, ip,
				rl.config.CredentialRate, rl.config.CredentialBurst)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.CredentialRate)
				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("limit_type", "credential"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	rl.generalMu.RLock()
	defer rl.generalMu.RUnlock()
	return len(rl.generalLimiters)
}

// CredentialLimiterCount は現在管理されている資格情報リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) CredentialLimiterCount() int {
	rl.credentialMu.RLock()
	defer rl.credentialMu.RUnlock()
	return len(rl.credentialLimiters)
}

// getOrCreateLimiter は指定キーのリミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateLimiter(
	mu *sync.RWMutex,
	limiters map[string]*clientLimiter,
	key string,
	r rate.Limit,
	burst int,
) *rate.Limiter {
	mu.RLock()
	cl, exists := limiters[key]
	mu.RUnlock()

	if exists {
		mu.Lock()
		cl.lastAccess = time.Now()
		mu.Unlock()
		return cl.limiter
	}

	mu.Lock()
	defer mu.Unlock()

	// ダブルチェック
	if cl, exists := limiters[key]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(r, burst)
	limiters[key] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.generalMu.Lock()
	for key, cl := range rl.generalLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.generalLimiters, key)
		}
	}
	rl.generalMu.Unlock()

	rl.credentialMu.Lock()
	for key, cl := range rl.credentialLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.credentialLimiters, key)
		}
	}
	rl.credentialMu.Unlock()
}

// clientIP は接続元IPアドレスを返す。
// リバースプロキシの背後ではRemoteAddrがプロキシのアドレスになるため、
// X-Forwarded-Forを先頭優先で参照する。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// 複数経由時は「クライアント, プロキシ1, プロキシ2」の形式
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResult(w, http.StatusTooManyRequests, "リクエストが多すぎます。しばらく待ってから再度お試しください。")
}
