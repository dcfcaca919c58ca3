/*
 * nanok - Structured logging wrapper.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package klog wraps log/slog the way the rest of nanok expects to log:
// one handler, a stable timestamp format, and attributes rendered inline
// rather than as structured JSON, mirrored to stderr for anything at
// Warn level or above regardless of where the primary sink points.
package klog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is the slog.Handler nanok installs as the process default. A
// single instance is shared by every subsystem; every logger derived from
// it via WithAttrs/WithGroup shares its output, lock and mirrorAll setting.
type Handler struct {
	out       io.Writer
	component string
	h         slog.Handler
	mu        *sync.Mutex
	mirrorAll bool // when true, every record is mirrored to stderr, not just Warn+.
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{h: h.h.WithAttrs(attrs), mu: h.mu, out: h.out, component: h.component, mirrorAll: h.mirrorAll}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{h: h.h.WithGroup(name), mu: h.mu, out: h.out, component: h.component, mirrorAll: h.mirrorAll}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	formattedTime := r.Time.Format("2006/01/02 15:04:05.000")

	parts := []string{formattedTime, level}
	if h.component != "" {
		parts = append(parts, "["+h.component+"]")
	}
	parts = append(parts, r.Message)

	if r.NumAttrs() != 0 {
		r.Attrs(func(a slog.Attr) bool {
			parts = append(parts, a.Key+"="+a.Value.String())
			return true
		})
	}
	line := strings.Join(parts, " ") + "\n"
	b := []byte(line)

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(b)
	}
	if h.mirrorAll || r.Level >= slog.LevelWarn {
		_, err = os.Stderr.Write(b)
	}
	return err
}

// Component returns a handler tagged with a subsystem name, e.g.
// klog.NewHandler(...).Component("pmm"), so log lines read
// "[pmm] allocated frame addr=0x..." the way the teacher tags channel and
// device diagnostics with their subsystem name.
func (h *Handler) Component(name string) *Handler {
	return &Handler{out: h.out, component: name, h: h.h, mu: h.mu, mirrorAll: h.mirrorAll}
}

// NewHandler builds a Handler writing to file (nil discards the primary
// sink, relying solely on the stderr mirror) honoring opts.Level/AddSource.
// mirrorAll forces every record to stderr; main sets it when no log file
// is given.
func NewHandler(file io.Writer, opts *slog.HandlerOptions, mirrorAll bool) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &Handler{
		out: file,
		h: slog.NewTextHandler(file, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: opts.AddSource,
		}),
		mu:        &sync.Mutex{},
		mirrorAll: mirrorAll,
	}
}
