package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	execCalled bool
	query      string
	args       []interface{}
	result     sql.Result
	err        error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.execCalled = true
	m.query = query
	m.args = args
	return m.result, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestCleanupJob_Run_ExecutesDeleteQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 5},
	}
	job := NewCleanupJob(mock, logger)

	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if !mock.execCalled {
		t.Fatal("ExecContext が呼び出されなかった")
	}

	// SQLクエリにDELETE FROM sessionsが含まれること
	if !strings.Contains(mock.query, "DELETE FROM sessions") {
		t.Errorf("クエリに 'DELETE FROM sessions' が含まれていない: %s", mock.query)
	}

	// SQLクエリにexpires_atの条件が含まれること
	if !strings.Contains(mock.query, "expires_at") {
		t.Errorf("クエリに 'expires_at' 条件が含まれていない: %s", mock.query)
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 42},
	}
	job := NewCleanupJob(mock, logger)

	_ = job.Run(context.Background())

	// ログ出力に削除件数が含まれること
	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["deleted_count"]; ok {
			if count == float64(42) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: nil,
		err:    sql.ErrConnDone,
	}
	job := NewCleanupJob(mock, logger)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}

	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
}

func TestCleanupJob_Run_LogsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: nil,
		err:    sql.ErrConnDone,
	}
	job := NewCleanupJob(mock, logger)

	_ = job.Run(context.Background())

	// エラーログが出力されていること
	logOutput := buf.String()
	if !strings.Contains(logOutput, "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", logOutput)
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewCleanupJob(mock, logger)

	// 1回目の実行
	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}

	// 2回目の実行（冪等性: 削除対象がなくてもエラーにならない）
	err = job.Run(context.Background())
	if err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}
}

func TestCleanupJob_Run_LogsZeroDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewCleanupJob(mock, logger)

	_ = job.Run(context.Background())

	// 0件削除でもログが出力されること
	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["deleted_count"]; ok {
			if count == float64(0) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_LogsExecutionTime(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 3},
	}
	job := NewCleanupJob(mock, logger)

	_ = job.Run(context.Background())

	// 処理時間がログに含まれること
	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry["duration_ms"]; ok {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_RespectsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewCleanupJob(mock, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // 即座にキャンセル

	// キャンセル済みコンテキストでの実行はDBのExecContextに委ねる
	// モックでは常に成功するが、実際のDBではコンテキストエラーが返る
	_ = job.Run(ctx)

	// ExecContextが呼ばれたことを確認（コンテキストはDB層に伝播する）
	if !mock.execCalled {
		t.Fatal("キャンセル済みコンテキストでもExecContextは呼び出されるべき")
	}
}
