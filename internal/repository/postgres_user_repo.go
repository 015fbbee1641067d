package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/authman/internal/model"
)

// PostgreSQLの一意制約違反エラーコード。
const pgUniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	return r.findBy(ctx, `WHERE id = $1`, id)
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(ctx, `WHERE username = $1`, username)
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, `WHERE email = $1`, email)
}

func (r *PostgresUserRepo) findBy(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at FROM users `+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成し、採番されたIDをuserに書き戻す。
// 存在チェックは行わず、一意性の判定はINSERT時の制約違反で検出する。
// これにより並行登録でも片方だけが成功することが保証される。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// UpdatePassword は指定ユーザーのパスワードハッシュを更新する。
func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %d", id)
	}
	return nil
}

// mapUniqueViolation は23505エラーを制約名からセンチネルエラーに変換する。
// 該当しないエラーの場合はnilを返す。
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return nil
	}
	switch pqErr.Constraint {
	case "users_username_key":
		return ErrDuplicateUsername
	case "users_email_key":
		return ErrDuplicateEmail
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
