package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword はbcryptでパスワードをハッシュ化する。
// ソルトはbcryptが生成しダイジェストに埋め込まれる。
func HashPassword(plaintext string, cost int) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// VerifyPassword はダイジェストと平文パスワードを比較する。
// 比較はbcrypt内部で定数時間で行われる。
// 不一致はエラーではなく(false, nil)として返し、
// それ以外のbcryptエラー（ダイジェスト破損等）はエラーとして返す。
// エラーを「一致」として扱うことは決してない。
func VerifyPassword(digest, plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify password: %w", err)
}
