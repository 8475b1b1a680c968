// Package dataset exports bucket mappings as JSON lines to a rotating file.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fieldcat/internal/binning"

	"gopkg.in/natefinch/lumberjack.v2"
)

// BucketRepository stores the buckets of binning plans.
type BucketRepository interface {
	Append(plan, key string, ids []int64) error
	Export(plan string, m binning.Mapping) error
	Close() error
}

// JSONBucketRepository writes every bucket as a JSON line
//
//	{"time":"2024-05-01 10:00:00","run_id":"…","plan":"mz","key":"z_0_1__m_8_10_sf","count":1,"ids":[1]}
//
// to a file rotated and compressed by lumberjack. It is safe for concurrent use.
type JSONBucketRepository struct {
	lumberjack *lumberjack.Logger
	handler    slog.Handler
}

// NewJSONBucketRepository creates a repository writing to file. The file is rotated once it
// reaches maxSize MB; maxBackups rotated files are kept. attrs (e.g. the run identifier) are
// written on every line.
func NewJSONBucketRepository(file string, maxSize, maxBackups int, compress bool, attrs ...slog.Attr) *JSONBucketRepository {
	lj := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   compress,
	}
	return &JSONBucketRepository{
		lumberjack: lj,
		handler:    newLineHandler(lj).WithAttrs(attrs),
	}
}

// Append writes one bucket of plan and returns the write error, if any.
func (r *JSONBucketRepository) Append(plan, key string, ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "", 0)
	record.AddAttrs(
		slog.String("plan", plan),
		slog.String("key", key),
		slog.Int("count", len(ids)),
		slog.Any("ids", ids),
	)
	if err := r.handler.Handle(context.Background(), record); err != nil {
		return fmt.Errorf("dataset %s: plan %q bucket %q: %w", r.lumberjack.Filename, plan, key, err)
	}
	return nil
}

// Export writes every bucket of m in key order and stops at the first failed write.
func (r *JSONBucketRepository) Export(plan string, m binning.Mapping) error {
	for _, key := range m.Keys() {
		if err := r.Append(plan, key, m[key]); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the current file.
func (r *JSONBucketRepository) Close() error {
	return r.lumberjack.Close()
}
