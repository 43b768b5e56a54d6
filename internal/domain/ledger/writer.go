package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Writer persists audit entries asynchronously. A single consumer goroutine
// drains the buffered channel, so entries are inserted in enqueue order and
// per-user ordering follows from the global order. Failures are logged and
// never reach the operation that produced the entry.
type Writer struct {
	repo AuditRepository
	log  zerolog.Logger

	ch   chan *AuditLog
	done chan struct{}
	once sync.Once
}

func NewWriter(repo AuditRepository, log zerolog.Logger, buffer int) *Writer {
	w := &Writer{
		repo: repo,
		log:  log,
		ch:   make(chan *AuditLog, buffer),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	defer close(w.done)
	for e := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.repo.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).Str("action", e.Action).Msg("audit insert failed")
		}
		cancel()
	}
}

// Enqueue hands an entry to the consumer without blocking. When the buffer is
// full the entry is dropped and logged; the caller's operation is unaffected.
func (w *Writer) Enqueue(e *AuditLog) {
	select {
	case w.ch <- e:
	default:
		w.log.Warn().Str("action", e.Action).Msg("audit buffer full, entry dropped")
	}
}

// Close stops accepting entries and waits for the consumer to drain the
// buffer.
func (w *Writer) Close() {
	w.once.Do(func() { close(w.ch) })
	<-w.done
}
