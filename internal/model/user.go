// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはAPIレスポンスに含めない。
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int
	ExpiresAt time.Time
	CreatedAt time.Time
}
