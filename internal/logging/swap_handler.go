package logging

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
)

// swapHandler forwards to a handler that Initialize can replace at runtime.
// Attributes and groups added with With/WithGroup are replayed onto whatever
// handler is current, so derived loggers follow the swap too.
type swapHandler struct {
	root *atomic.Pointer[slog.Handler]
	ops  []func(slog.Handler) slog.Handler
}

func (h *swapHandler) current() slog.Handler {
	handler := *h.root.Load()
	for _, op := range h.ops {
		handler = op(handler)
	}
	return handler
}

func (h *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*h.root.Load()).Enabled(ctx, level)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *swapHandler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := append(slices.Clone(h.ops), op)
	return &swapHandler{root: h.root, ops: ops}
}
