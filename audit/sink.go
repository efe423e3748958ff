package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sink receives dispatched activity records.
type Sink interface {
	Emit(ctx context.Context, rec ActivityRecord)
}

// NoOpSink drops records.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, ActivityRecord) {}

// ChannelSink writes records into a buffered channel.
type ChannelSink struct {
	records chan ActivityRecord
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		records: make(chan ActivityRecord, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, rec ActivityRecord) {
	select {
	case s.records <- rec:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Records() <-chan ActivityRecord {
	return s.records
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, rec ActivityRecord) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZapSink logs each record at info level.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

func (s *ZapSink) Emit(_ context.Context, rec ActivityRecord) {
	s.log.Info("activity",
		zap.String("id", rec.ID),
		zap.String("action", rec.Action),
		zap.String("user_id", rec.UserID),
		zap.String("session_id", rec.SessionID),
		zap.String("details", rec.Details),
		zap.Time("timestamp", rec.Timestamp),
		zap.Any("metadata", rec.Metadata),
	)
}
