// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/authman/internal/model"
)

// 一意制約違反を呼び出し側でフィールド別エラーに変換するためのセンチネルエラー。
var (
	// ErrDuplicateUsername はusernameの一意制約違反を表す。
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail はemailの一意制約違反を表す。
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDをuserに書き戻す。
	// 一意性の判定はストアに委ね、username/emailの制約違反は
	// ErrDuplicateUsername/ErrDuplicateEmailとして返す。
	Create(ctx context.Context, user *model.User) error

	// UpdatePassword は指定ユーザーのパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	// パスワード変更後のセッション失効で使用する。
	DeleteByUserID(ctx context.Context, userID int) error
}
