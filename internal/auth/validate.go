package auth

import (
	"strings"

	"github.com/hitoshi/authman/internal/model"
)

// ValidateRegisterInput は登録入力の形式を検証する。
// 問題がなければ空のスライスを返す。複数フィールドのエラーは同時に報告する。
func ValidateRegisterInput(username, email, password string) []model.FieldError {
	var errs []model.FieldError

	if len(username) <= 2 {
		errs = append(errs, model.FieldError{
			Field:   "username",
			Message: "ユーザー名は3文字以上で入力してください。",
		})
	} else if strings.Contains(username, "@") {
		// ログイン時に@でメールアドレスと区別するため、ユーザー名には@を許可しない
		errs = append(errs, model.FieldError{
			Field:   "username",
			Message: "ユーザー名に@は使用できません。",
		})
	}

	if !strings.Contains(email, "@") {
		errs = append(errs, model.FieldError{
			Field:   "email",
			Message: "メールアドレスの形式が正しくありません。",
		})
	}

	if len(password) <= 2 {
		errs = append(errs, model.FieldError{
			Field:   "password",
			Message: "パスワードは3文字以上で入力してください。",
		})
	}

	return errs
}
