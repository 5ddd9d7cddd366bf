package metrics

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
)

// JSONLObserver appends one JSON line per event, suitable for a call
// timeline artifact file. Writes are buffered; Flush pushes them through
// to the underlying writer.
type JSONLObserver struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	logger *slog.Logger
}

func NewJSONLObserver(w io.Writer) *JSONLObserver {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	return &JSONLObserver{
		buf:    buf,
		logger: slog.New(slog.NewJSONHandler(buf, nil)),
	}
}

func (o *JSONLObserver) RecordEvent(ev Event) {
	attrs := []slog.Attr{
		slog.String("name", ev.Name),
		slog.Time("time", ev.Time),
		slog.Float64("value", ev.Value),
	}
	for k, v := range ev.Tags {
		attrs = append(attrs, slog.String(k, v))
	}
	for k, v := range ev.Fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	o.mu.Lock()
	o.logger.LogAttrs(context.TODO(), slog.LevelInfo, "timeline", attrs...)
	o.mu.Unlock()
}

// Flush drains buffered lines to the writer. Called during shutdown so a
// short session still leaves a complete timeline on disk.
func (o *JSONLObserver) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Flush()
}

var _ Flusher = (*JSONLObserver)(nil)
