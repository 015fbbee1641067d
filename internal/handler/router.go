package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/authman/internal/metrics"
	"github.com/hitoshi/authman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 運用エンドポイント
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CORS
//
// 資格情報を扱うルート（登録・ログイン・リセット）はIP単位のレート制限を追加し、
// 認証済みルート（/api/*）はSession → RateLimit(General)を通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- 認証ルート ---
	r.Route("/auth", func(r chi.Router) {
		// 資格情報を扱う操作はIP単位のレート制限を追加
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.CredentialMiddleware())

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/change-password", authHandler.ChangePassword)
		})

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/me", authHandler.CurrentUser)
	})

	return r
}
