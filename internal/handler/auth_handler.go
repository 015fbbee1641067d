// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/authman/internal/middleware"
	"github.com/hitoshi/authman/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*model.MutationResult, *model.Session)
	Login(ctx context.Context, usernameOrEmail, password string) (*model.MutationResult, *model.Session)
	Logout(ctx context.Context, sessionID string) bool
	ForgotPassword(ctx context.Context, email string) (bool, error)
	ChangePassword(ctx context.Context, token, userID, newPassword string) (*model.MutationResult, *model.Session)
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	GetUserByID(ctx context.Context, id int) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はアカウント操作のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	NewPassword string `json:"newPassword"`
}

// Register は新規ユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w)
		return
	}

	result, session := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if session != nil {
		h.setSessionCookie(w, session.ID)
	}

	writeMutationResult(w, result)
}

// Login はユーザー名またはメールアドレスでログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w)
		return
	}

	result, session := h.service.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if session != nil {
		h.setSessionCookie(w, session.ID)
	}

	writeMutationResult(w, result)
}

// Logout はセッションを破棄する。
// サーバー側の破棄に失敗してもCookieは必ずクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	destroyed := false
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		destroyed = h.service.Logout(r.Context(), cookie.Value)
	}

	h.clearSessionCookie(w)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": destroyed})
}

// ForgotPassword はパスワードリセットメールの送信を要求する。
// メールアドレスの登録有無にかかわらず成功を返す。
// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w)
		return
	}

	ok, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		slog.Error("forgot password failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": ok})
}

// ChangePassword はリセットトークンでパスワードを変更する。
// POST /auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w)
		return
	}

	result, session := h.service.ChangePassword(r.Context(), req.Token, req.UserID, req.NewPassword)
	if session != nil {
		h.setSessionCookie(w, session.ID)
	}

	writeMutationResult(w, result)
}

// Me は現在のログインユーザー情報を返す。
// セッションミドルウェアを経由しないため、Cookieを直接検証する。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResult(w, http.StatusUnauthorized, "認証が必要です。")
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		middleware.WriteErrorResult(w, http.StatusUnauthorized, "認証が必要です。")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// CurrentUser は認証済みルートで現在のユーザー情報を返す。
// セッションミドルウェアが注入したユーザーIDを使用する。
// GET /api/me
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResult(w, http.StatusUnauthorized, "認証が必要です。")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		slog.Error("failed to get user",
			slog.Int("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if user == nil {
		// セッションは有効だがユーザーが削除済み
		middleware.WriteErrorResult(w, http.StatusUnauthorized, "認証が必要です。")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeBadRequest はJSONとして解釈できないリクエストへの統一レスポンスを書き込む。
func (h *AuthHandler) writeBadRequest(w http.ResponseWriter) {
	middleware.WriteErrorResult(w, http.StatusBadRequest, "リクエスト形式が正しくありません。")
}

// writeMutationResult はMutationResultをレスポンスに書き込む。
// HTTPステータスはボディのcodeと常に一致させる。
func writeMutationResult(w http.ResponseWriter, result *model.MutationResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Code)
	json.NewEncoder(w).Encode(result)
}
