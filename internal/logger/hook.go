package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// AsyncHook formats entries on the caller's goroutine and writes them from a
// background goroutine. When the buffer is full new entries are dropped.
type AsyncHook struct {
	writers []io.Writer
	entries chan []byte
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// NewAsyncHookWithWriters starts the writer goroutine. bufferSize <= 0 means 1000.
func NewAsyncHookWithWriters(writers []io.Writer, bufferSize int) *AsyncHook {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	hook := &AsyncHook{
		writers: writers,
		entries: make(chan []byte, bufferSize),
	}

	hook.wg.Add(1)
	go hook.processEntries()

	return hook
}

func (h *AsyncHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire never blocks on the writers.
func (h *AsyncHook) Fire(entry *logrus.Entry) error {
	data, err := format(entry)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		// after Close, write synchronously
		for _, w := range h.writers {
			_, _ = w.Write(data)
		}
		return nil
	}

	select {
	case h.entries <- data:
	default:
	}
	return nil
}

// format must run before Fire returns: logrus reuses the entry's buffer.
func format(entry *logrus.Entry) ([]byte, error) {
	if entry.Logger != nil && entry.Logger.Formatter != nil {
		b, err := entry.Logger.Formatter.Format(entry)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	line, err := entry.String()
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

func (h *AsyncHook) processEntries() {
	defer h.wg.Done()

	for data := range h.entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// the logger cannot log its own failure
					fmt.Fprintf(os.Stderr, "[LOGGER PANIC] async hook recovered: %v\n", r)
					debug.PrintStack()
				}
			}()

			for _, w := range h.writers {
				if _, err := w.Write(data); err != nil {
					continue
				}
			}
		}()
	}
}

// Close stops accepting entries and waits for the buffer to drain.
func (h *AsyncHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.entries)
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}
