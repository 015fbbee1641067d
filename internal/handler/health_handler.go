package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler は/health用のハンドラーを返す。
// DBへ到達できれば200、できなければ503を返す。
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := checker.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
