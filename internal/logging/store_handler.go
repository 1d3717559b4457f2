package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	flushInterval = 5 * time.Second
	flushSize     = 50
)

// StoreHandler is an slog.Handler that batches ERROR+ records into the log
// repository of whichever store the server runs on.
type StoreHandler struct {
	sink  *logSink
	attrs []slog.Attr
}

type logSink struct {
	logs   repository.LogRepository
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	kick   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func NewStoreHandler(logs repository.LogRepository) *StoreHandler {
	s := &logSink{
		logs:   logs,
		buffer: make([]models.SystemLog, 0, flushSize),
		ticker: time.NewTicker(flushInterval),
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.flushLoop()
	return &StoreHandler{sink: s}
}

func (s *logSink) flushLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.kick:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *logSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, flushSize)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.logs.InsertLogs(ctx, batch); err != nil {
		// WARN so the failure is not fed back into this handler
		slog.Warn("failed to flush system logs to store", "error", err, "count", len(batch))
	}
}

// Stop flushes whatever is buffered and ends the background loop.
func (h *StoreHandler) Stop() {
	h.sink.once.Do(func() {
		h.sink.ticker.Stop()
		close(h.sink.done)
	})
	h.sink.wg.Wait()
}

// Enabled only handles ERROR and above.
func (h *StoreHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *StoreHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time.UTC(),
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]any)
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id", "requestid":
			entry.RequestID = a.Value.String()
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "chat_id":
			entry.ChatID = a.Value.String()
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			switch a.Value.Kind() {
			case slog.KindFloat64:
				entry.LatencyMs = int(math.Round(a.Value.Float64()))
			case slog.KindInt64:
				entry.LatencyMs = int(a.Value.Int64())
			}
		default:
			extra[a.Key] = a.Value.Resolve().Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.sink.mu.Lock()
	h.sink.buffer = append(h.sink.buffer, entry)
	needFlush := len(h.sink.buffer) >= flushSize
	h.sink.mu.Unlock()

	if needFlush {
		select {
		case h.sink.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

func (h *StoreHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &StoreHandler{sink: h.sink, attrs: merged}
}

// WithGroup is a no-op: persisted rows are flat.
func (h *StoreHandler) WithGroup(string) slog.Handler {
	return h
}
