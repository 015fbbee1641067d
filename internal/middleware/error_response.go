package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/authman/internal/model"
)

// WriteErrorResult はMutationResultフォーマットでHTTPエラーレスポンスを書き込む。
// ハンドラー外（ミドルウェア）で発生するエラーもハンドラーと同じ形で返し、
// クライアントが単一のレスポンス形を扱えるようにする。
func WriteErrorResult(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(model.MutationResult{
		Code:    statusCode,
		Success: false,
		Message: message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResult(w, http.StatusInternalServerError, "内部エラーが発生しました。")
}
