package logging

import (
	"context"
	"log/slog"
)

// TurnInfo reports where the match currently is.
type TurnInfo interface {
	LogAttrs() []slog.Attr
}

// TurnHandler stamps every record with the attributes of a TurnInfo,
// sampled when the record is handled.
type TurnHandler struct {
	inner slog.Handler
	info  TurnInfo
}

func NewTurnHandler(inner slog.Handler, info TurnInfo) *TurnHandler {
	return &TurnHandler{inner: inner, info: info}
}

func (h *TurnHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *TurnHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.info != nil {
		r.AddAttrs(h.info.LogAttrs()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *TurnHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TurnHandler{inner: h.inner.WithAttrs(attrs), info: h.info}
}

func (h *TurnHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TurnHandler{inner: h.inner.WithGroup(name), info: h.info}
}
