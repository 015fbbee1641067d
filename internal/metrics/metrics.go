// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は認証ワークフローのPrometheusメトリクスを収集する。
// 応答に現れない失敗（セッション破棄失敗、リセットメール送信失敗）も
// ここで可視化する。
type Collector struct {
	registrations      prometheus.Counter
	loginSuccess       prometheus.Counter
	loginFail          prometheus.Counter
	passwordChanges    prometheus.Counter
	resetMailSent      prometheus.Counter
	resetMailFail      prometheus.Counter
	sessionDestroyFail prometheus.Counter
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authman_registrations_total",
			Help: "ユーザー登録成功の合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authman_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authman_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		passwordChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authman_password_change_total",
			Help: "パスワード変更成功の合計数",
		}),
		resetMailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authman_reset_mail_sent_total",
			Help: "リセットメール送信成功の合計数",
		}),
		resetMailFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authman_reset_mail_fail_total",
			Help: "リセットメール送信失敗（トークン保存失敗を含む）の合計数",
		}),
		sessionDestroyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authman_session_destroy_fail_total",
			Help: "セッション破棄失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.registrations,
		c.loginSuccess,
		c.loginFail,
		c.passwordChanges,
		c.resetMailSent,
		c.resetMailFail,
		c.sessionDestroyFail,
		c.httpStatus,
	)

	return c
}

// RecordRegistration は登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordPasswordChange はパスワード変更成功を記録する。
func (c *Collector) RecordPasswordChange() {
	c.passwordChanges.Inc()
}

// RecordResetMailSent はリセットメール送信成功を記録する。
func (c *Collector) RecordResetMailSent() {
	c.resetMailSent.Inc()
}

// RecordResetMailFailure はリセットメール送信失敗を記録する。
func (c *Collector) RecordResetMailFailure() {
	c.resetMailFail.Inc()
}

// RecordSessionDestroyFailure はセッション破棄失敗を記録する。
func (c *Collector) RecordSessionDestroyFailure() {
	c.sessionDestroyFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
