package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultBufferLines is used when NewBuffer is given a non-positive size.
const DefaultBufferLines = 500

// Buffer is an io.Writer that keeps the most recent complete lines written
// to it. It is safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	lines   []string
	next    int
	full    bool
	partial []byte
}

// NewBuffer returns a Buffer holding at most size lines.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferLines
	}
	return &Buffer{lines: make([]string, size)}
}

// Write implements io.Writer. Bytes after the last newline are held until
// the line is completed by a later write.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			b.partial = append(b.partial, data...)
			break
		}
		line := string(append(b.partial, data[:i]...))
		b.partial = b.partial[:0]
		b.push(line)
		data = data[i+1:]
	}
	return len(p), nil
}

func (b *Buffer) push(line string) {
	b.lines[b.next] = line
	b.next++
	if b.next == len(b.lines) {
		b.next = 0
		b.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]string(nil), b.lines[:b.next]...)
	}
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.next:]...)
	return append(out, b.lines[:b.next]...)
}

// Tail returns at most n of the newest lines, oldest first.
func (b *Buffer) Tail(n int) []string {
	lines := b.Lines()
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Reset drops every buffered line.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.next = 0
	b.full = false
	b.partial = b.partial[:0]
}

// tee fans records out to every handler that accepts their level.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
