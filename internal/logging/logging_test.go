package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/Webrookie0/growex-all-projects/internal/repository/repotest"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStoreHandler_PersistsErrorsOnly(t *testing.T) {
	store := repotest.NewStore(t)
	h := NewStoreHandler(store.Logs)
	logger := slog.New(h).With("request_id", "req-1")

	logger.Info("ignored")
	logger.Error("send failed", "error", errors.New("boom"), "chat_id", "chat_a_b", "user_id", "u-1", "latency_ms", 12.6, "attempt", 2)
	h.Stop()

	logs, err := store.Logs.ListLogs(context.Background(), repository.LogFilter{})
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("persisted %d logs, want 1", len(logs))
	}

	got := logs[0]
	if got.Message != "send failed" || got.Level != "ERROR" || got.Error != "boom" {
		t.Errorf("log = %+v", got)
	}
	if got.RequestID != "req-1" || got.ChatID != "chat_a_b" || got.UserID == nil || *got.UserID != "u-1" {
		t.Errorf("context attrs not mapped: %+v", got)
	}
	if got.LatencyMs != 13 {
		t.Errorf("LatencyMs = %d, want 13", got.LatencyMs)
	}
	if !strings.Contains(string(got.Extra), `"attempt":2`) {
		t.Errorf("Extra = %s, want attempt", got.Extra)
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var info, errOnly bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errOnly, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h)

	logger.Info("hello")
	logger.Error("bad")

	if !strings.Contains(info.String(), "hello") || !strings.Contains(info.String(), "bad") {
		t.Errorf("info handler output = %s", info.String())
	}
	if strings.Contains(errOnly.String(), "hello") || !strings.Contains(errOnly.String(), "bad") {
		t.Errorf("error handler output = %s", errOnly.String())
	}
}

type slowLogs struct {
	repository.LogRepository
	mu       sync.Mutex
	inserted int
}

func (l *slowLogs) InsertLogs(_ context.Context, logs []models.SystemLog) error {
	time.Sleep(50 * time.Millisecond)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inserted += len(logs)
	return nil
}

func TestStoreHandler_StopWaitsForSizeFlush(t *testing.T) {
	logs := &slowLogs{}
	h := NewStoreHandler(logs)
	logger := slog.New(h)

	for i := 0; i < flushSize; i++ {
		logger.Error("burst", "n", i)
	}
	h.Stop()

	logs.mu.Lock()
	got := logs.inserted
	logs.mu.Unlock()
	if got != flushSize {
		t.Errorf("inserted %d logs before Stop returned, want %d", got, flushSize)
	}
}

func TestPruneOnce(t *testing.T) {
	store := repotest.NewStore(t)
	h := NewStoreHandler(store.Logs)
	slog.New(h).Error("old entry")
	h.Stop()

	deleted := PruneOnce(store.Logs, time.Hour, time.Now().Add(2*time.Hour))
	if deleted != 1 {
		t.Errorf("PruneOnce() deleted %d, want 1", deleted)
	}
}
