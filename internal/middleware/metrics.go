package middleware

import "net/http"

// StatusRecorder はレスポンスのステータスコードを記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// NewMetricsMiddleware は全レスポンスのステータスコードをメトリクスに記録する
// ミドルウェアを返す。
func NewMetricsMiddleware(recorder StatusRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPStatus(rec.statusCode)
		})
	}
}
