// Package logctx enriches slog records with authentication-attempt
// attributes carried on the context, so every log line emitted during one
// attempt can be correlated without threading attributes by hand.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps an slog.Handler and appends attempt attributes from the
// context to every record.
type Handler struct {
	slog.Handler
}

// NewHandler wraps h.
func NewHandler(h slog.Handler) Handler {
	return Handler{Handler: h}
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if a, ok := ctx.Value(attemptKey{}).(*Attempt); ok {
		attrs := []any{
			slog.String("id", a.ID),
			slog.String("provider", a.Provider),
		}
		if a.TokenSource != "" {
			attrs = append(attrs, slog.String("token_source", a.TokenSource))
		}
		r.AddAttrs(slog.Group("attempt", attrs...))
	}
	return h.Handler.Handle(ctx, r)
}

type attemptKey struct{}

// Attempt identifies one in-flight authentication attempt. TokenSource is
// populated once the credential has been located.
type Attempt struct {
	ID          string
	Provider    string
	TokenSource string
}

// WithAttempt attaches attempt data to the context.
func WithAttempt(ctx context.Context, a *Attempt) context.Context {
	return context.WithValue(ctx, attemptKey{}, a)
}
