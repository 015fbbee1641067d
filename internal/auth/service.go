// Package auth はパスワード認証、セッション管理、パスワードリセットのワークフローを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authman/internal/model"
	"github.com/hitoshi/authman/internal/repository"
)

// ResetTokenStore はリセットトークンの保存と消費のインターフェース。
type ResetTokenStore interface {
	// Save はトークンとユーザーIDの対応をTTL付きで保存する。
	Save(ctx context.Context, token string, userID int) error
	// Consume はトークンに対応するユーザーIDを取得し、同時にトークンを削除する。
	// 存在しない（または期限切れの）場合はok=falseを返す。
	Consume(ctx context.Context, token string) (userID int, ok bool, err error)
}

// Mailer はパスワードリセットメールの送信インターフェース。
type Mailer interface {
	// SendPasswordReset はリセットリンクを含むメールをtoに送信する。
	SendPasswordReset(ctx context.Context, to string, token string, userID int) error
}

// MetricsRecorder は認証ワークフローのメトリクス記録インターフェース。
// ログアウト失敗やメール送信失敗など、呼び出し元に返らない失敗もここで可視化する。
type MetricsRecorder interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordPasswordChange()
	RecordResetMailSent()
	RecordResetMailFailure()
	RecordSessionDestroyFailure()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // bcryptのコストパラメータ
}

// Service は認証に関するビジネスロジックを提供する。
// 共有状態はすべてリポジトリとトークンストアに置き、Service自体は
// 可変状態を持たない。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokens      ResetTokenStore
	mailer      Mailer
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokens ResetTokenStore,
	mailer Mailer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		mailer:      mailer,
		metrics:     metrics,
		config:      config,
	}
}

// Register は新規ユーザーを登録し、セッションを発行する。
// 一意性の判定はINSERT時の制約違反に委ねるため、並行登録でも
// 同一ユーザー名・メールアドレスが二重に作成されることはない。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.MutationResult, *model.Session) {
	if errs := ValidateRegisterInput(username, email, password); len(errs) > 0 {
		return model.FieldErrorResult(errs...), nil
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}

	now := time.Now()
	user := &model.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return model.FieldErrorResult(model.FieldError{
				Field:   "username",
				Message: "このユーザー名は既に使用されています。",
			}), nil
		case errors.Is(err, repository.ErrDuplicateEmail):
			return model.FieldErrorResult(model.FieldError{
				Field:   "email",
				Message: "このメールアドレスは既に登録されています。",
			}), nil
		}
		slog.Error("failed to create user", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		slog.Error("failed to create session", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}

	s.metrics.RecordRegistration()
	slog.Info("new user registered",
		slog.Int("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return model.SuccessResult("登録が完了しました。", user), session
}

// Login はユーザー名またはメールアドレスとパスワードで認証し、セッションを発行する。
// 「ユーザーが存在しない」と「パスワードが違う」は意図的に区別して返す。
// 列挙攻撃への緩和はIP単位のレート制限で行う。
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*model.MutationResult, *model.Session) {
	var user *model.User
	var err error

	// @の有無でユーザー名かメールアドレスかを判定する
	if strings.Contains(usernameOrEmail, "@") {
		user, err = s.userRepo.FindByEmail(ctx, strings.ToLower(usernameOrEmail))
	} else {
		user, err = s.userRepo.FindByUsername(ctx, usernameOrEmail)
	}
	if err != nil {
		slog.Error("failed to look up user", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}

	if user == nil {
		s.metrics.RecordLoginFailure()
		return model.FieldErrorResult(model.FieldError{
			Field:   "usernameOrEmail",
			Message: "該当するユーザーが存在しません。",
		}), nil
	}

	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil {
		slog.Error("failed to verify password",
			slog.Int("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return model.InternalErrorResult(err), nil
	}
	if !ok {
		s.metrics.RecordLoginFailure()
		return model.FieldErrorResult(model.FieldError{
			Field:   "password",
			Message: "パスワードが正しくありません。",
		}), nil
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		slog.Error("failed to create session", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}

	s.metrics.RecordLoginSuccess()
	slog.Info("user logged in", slog.Int("user_id", user.ID))

	return model.SuccessResult("ログインしました。", user), session
}

// Logout はサーバー側セッションを破棄する。
// 破棄に失敗してもエラーにはせずfalseを返す。Cookieのクリアは
// 成否にかかわらずハンドラー側で必ず行うため、クライアント側の
// サインアウトは常に成立する。失敗はログとメトリクスに残す。
func (s *Service) Logout(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		s.metrics.RecordSessionDestroyFailure()
		slog.Error("failed to destroy session", slog.String("error", err.Error()))
		return false
	}

	slog.Info("user logged out")
	return true
}

// ForgotPassword はリセットトークンを発行し、リセットリンクをメールで送信する。
// アカウントの存在を応答から推測されないよう、メールアドレスが未登録でも
// trueを返す。トークン保存・メール送信の失敗も契約上はtrueのままとし、
// ログとメトリクスにのみ記録する。
// ルックアップ自体の失敗のみエラーとして返す（500相当）。
func (s *Service) ForgotPassword(ctx context.Context, email string) (bool, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return false, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		// トークンは発行せず、メールも送らない
		return true, nil
	}

	token := uuid.New().String()

	if err := s.tokens.Save(ctx, token, user.ID); err != nil {
		s.metrics.RecordResetMailFailure()
		slog.Error("failed to save reset token",
			slog.Int("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return true, nil
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token, user.ID); err != nil {
		s.metrics.RecordResetMailFailure()
		slog.Error("failed to send password reset mail",
			slog.Int("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return true, nil
	}

	s.metrics.RecordResetMailSent()
	slog.Info("password reset mail sent", slog.Int("user_id", user.ID))
	return true, nil
}

// ChangePassword はリセットトークンを検証してパスワードを更新し、セッションを発行する。
// パスワード長の検証はトークン消費より先に行う。弱いパスワードの入力で
// トークンを無駄に消費させないため。
// userIDはリセットリンクに含まれる文字列をそのまま受け取り、トークンに
// 紐付くIDと一致しない場合は無効トークンとして扱う。
func (s *Service) ChangePassword(ctx context.Context, token, userID, newPassword string) (*model.MutationResult, *model.Session) {
	if len(newPassword) <= 2 {
		return model.FieldErrorResult(model.FieldError{
			Field:   "newPassword",
			Message: "パスワードは3文字以上で入力してください。",
		}), nil
	}

	// GETDELによりこの時点でトークンは消費済みになる。
	// 以降のステップが失敗してもトークンは復活しない。
	cachedUserID, ok, err := s.tokens.Consume(ctx, token)
	if err != nil {
		slog.Error("failed to consume reset token", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}
	if !ok {
		return invalidTokenResult(), nil
	}

	if strconv.Itoa(cachedUserID) != userID {
		slog.Warn("reset token user mismatch",
			slog.Int("token_user_id", cachedUserID),
			slog.String("request_user_id", userID),
		)
		return invalidTokenResult(), nil
	}

	user, err := s.userRepo.FindByID(ctx, cachedUserID)
	if err != nil {
		slog.Error("failed to find user", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}
	if user == nil {
		// フィールド名はtokenのまま返す（既存クライアントとの互換のため）
		return model.FieldErrorResult(model.FieldError{
			Field:   "token",
			Message: "ユーザーが存在しません。",
		}), nil
	}

	hash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		slog.Error("failed to update password",
			slog.Int("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return model.InternalErrorResult(err), nil
	}
	user.PasswordHash = hash

	// 既存セッションを失効させる。失敗しても操作自体は成功扱いとする。
	if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
		s.metrics.RecordSessionDestroyFailure()
		slog.Error("failed to revoke sessions after password change",
			slog.Int("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		slog.Error("failed to create session", slog.String("error", err.Error()))
		return model.InternalErrorResult(err), nil
	}

	s.metrics.RecordPasswordChange()
	slog.Info("password changed", slog.Int("user_id", user.ID))

	return model.SuccessResult("パスワードを変更しました。", user), session
}

// GetCurrentUser はセッションIDから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// GetUserByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
// セッションミドルウェアを通過した認証済みルートで使用する。
func (s *Service) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// invalidTokenResult は無効・期限切れトークンの統一エラーを返す。
// 消費済み・期限切れ・未発行のいずれも同じレスポンスになる。
func invalidTokenResult() *model.MutationResult {
	return model.FieldErrorResult(model.FieldError{
		Field:   "token",
		Message: "トークンが無効か期限切れです。",
	})
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID int) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
