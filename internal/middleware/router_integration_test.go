package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/authman/internal/model"
)

// TestRouterIntegration_ProtectedRoute_WithMiddlewareChain は
// Session -> RateLimit のミドルウェアチェーンがchi.Routerで正しく動作することを検証する。
func TestRouterIntegration_ProtectedRoute_WithMiddlewareChain(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "router-test-session" {
				return &model.Session{
					ID:        "router-test-session",
					UserID:    99,
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}

	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	r := chi.NewRouter()

	// 資格情報操作（認証不要、IP単位のレート制限のみ）
	r.Group(func(r chi.Router) {
		r.Use(rl.CredentialMiddleware())

		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		})
	})

	// 認証が必要なルートグループ
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(repo))
		r.Use(rl.GeneralMiddleware())

		r.Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]int{"user_id": userID})
		})
	})

	// テスト1: GET /api/me は認証ありで通り、コンテキストのユーザーIDが見える
	t.Run("GET_me_with_session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "router-test-session"})
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}

		var body map[string]int
		json.NewDecoder(w.Result().Body).Decode(&body)
		if body["user_id"] != 99 {
			t.Errorf("user_id = %d, want 99", body["user_id"])
		}
	})

	// テスト2: GET /api/me は認証なしで401
	t.Run("GET_me_no_session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
		}
	})

	// テスト3: GET /api/me は期限切れセッションで401
	t.Run("GET_me_expired_session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
		}
	})

	// テスト4: POST /auth/login は認証不要で通る
	t.Run("POST_login_no_auth_required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.20:51234"
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}
	})
}

// TestRouterIntegration_CredentialLimit_Returns429 はchi.Router経由でも
// 資格情報操作のIP単位レート制限が働くことを検証する。
func TestRouterIntegration_CredentialLimit_Returns429(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    200,
		CredentialRate:  1,
		CredentialBurst: 2,
		CleanupInterval: 1 * time.Minute,
	})
	defer rl.Stop()

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(rl.CredentialMiddleware())
		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// バースト2回までは通る
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.21:51234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusOK)
		}
	}

	// 3回目は429
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.21:51234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusTooManyRequests)
	}
}
