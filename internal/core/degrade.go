package core

import (
	"context"

	"wellness-chatbot/pkg/logging"
)

// DegradedReason names why a step fell back to a substitute value instead of
// failing the request.
type DegradedReason string

const (
	CompanyContextUnavailable  DegradedReason = "company_context_unavailable"
	PersonalContextUnavailable DegradedReason = "personal_context_unavailable"
	ReportParseFailed          DegradedReason = "report_parse_failed"
	DeepSearchUnavailable      DegradedReason = "deep_search_unavailable"
	AssessmentNotRecognized    DegradedReason = "assessment_not_recognized"
	AssessmentAnswersUnread    DegradedReason = "assessment_answers_unread"
)

// Result is a value that is always usable, plus the reason it is a
// substitute when the step behind it failed.
type Result[T any] struct {
	Value    T
	Degraded DegradedReason
	Err      error
}

// Ok wraps a real value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Degrade returns a substitute value tagged with its reason.
func Degrade[T any](v T, reason DegradedReason, err error) Result[T] {
	return Result[T]{Value: v, Degraded: reason, Err: err}
}

// OK reports whether the value is the real one.
func (r Result[T]) OK() bool { return r.Degraded == "" }

// Observer receives request and degradation counts.
type Observer interface {
	ObserveRequest(flow, status string)
	ObserveDegraded(reason string)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, string) {}
func (noopObserver) ObserveDegraded(string)        {}

// degradations logs and counts degraded results in one place.
type degradations struct {
	logger   *logging.Logger
	observer Observer
}

func (d degradations) record(ctx context.Context, reason DegradedReason, err error, attrs ...any) {
	args := append([]any{"reason", string(reason)}, attrs...)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	d.logger.WarnContext(ctx, "degraded response", args...)
	d.observer.ObserveDegraded(string(reason))
}

// note records r when it is degraded and returns its value.
func note[T any](ctx context.Context, d degradations, r Result[T], attrs ...any) T {
	if !r.OK() {
		d.record(ctx, r.Degraded, r.Err, attrs...)
	}
	return r.Value
}
