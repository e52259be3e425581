package llm

import (
	"context"
	"time"
)

// CallObserver records the outcome of provider calls.
type CallObserver interface {
	ObserveProviderCall(provider, status string, seconds float64)
}

// Instrumented reports every call made through a Client to an observer.
type Instrumented struct {
	provider string
	next     Client
	observer CallObserver
}

// WithObserver wraps c so each Complete call is observed under provider.
// A nil observer returns c unchanged.
func WithObserver(provider string, c Client, observer CallObserver) Client {
	if observer == nil {
		return c
	}
	return &Instrumented{provider: provider, next: c, observer: observer}
}

func (i *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := i.next.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.observer.ObserveProviderCall(i.provider, status, time.Since(start).Seconds())
	return text, err
}
