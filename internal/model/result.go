// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
)

// FieldError は入力フィールド単位の検証エラーを表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MutationResult はすべての更新系操作が返す統一レスポンス。
// CodeはHTTPステータスコードと同じ値を使用し、呼び出し側は
// SuccessとCodeだけで結果を判定できる。
type MutationResult struct {
	Code    int          `json:"code"`
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	User    *User        `json:"user,omitempty"`
}

// SuccessResult は成功レスポンス（200）を生成する。
func SuccessResult(message string, user *User) *MutationResult {
	return &MutationResult{
		Code:    http.StatusOK,
		Success: true,
		Message: message,
		User:    user,
	}
}

// FieldErrorResult は検証エラーレスポンス（400）を生成する。
func FieldErrorResult(errors ...FieldError) *MutationResult {
	return &MutationResult{
		Code:    http.StatusBadRequest,
		Success: false,
		Message: "入力内容を確認してください。",
		Errors:  errors,
	}
}

// InternalErrorResult は内部エラーレスポンス（500）を生成する。
// 原因のテキストをメッセージに含める。詳細なスタックはログ側にのみ残す。
func InternalErrorResult(err error) *MutationResult {
	return &MutationResult{
		Code:    http.StatusInternalServerError,
		Success: false,
		Message: fmt.Sprintf("内部エラーが発生しました: %v", err),
	}
}
