package ews

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/slav123/ews-mtgs-conformance/ews"

// Attribute keys used by the client instrumentation.
const (
	OperationAttribute    attribute.Key = "ews.operation"
	OutcomeAttribute      attribute.Key = "ews.outcome"
	MailboxAttribute      attribute.Key = "ews.mailbox"
	ResponseCodeAttribute attribute.Key = "ews.response_code"
)

// Request outcomes reported on the ews.requests counter.
const (
	outcomeSuccess = "success"
	outcomeWarning = "warning"
	outcomeError   = "error"
	outcomeFailed  = "failed"
)

type instrumentation struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Int64Histogram
}

func newInstrumentation(tp trace.TracerProvider, mp metric.MeterProvider) (*instrumentation, error) {
	meter := mp.Meter(instrumentationName)
	in := &instrumentation{tracer: tp.Tracer(instrumentationName)}

	var err error
	if in.requests, err = meter.Int64Counter(
		"ews.requests",
		metric.WithDescription("Count of EWS operations sent, by operation and outcome"),
	); err != nil {
		return nil, fmt.Errorf("ews: failed to register metric: %w", err)
	}

	if in.duration, err = meter.Int64Histogram(
		"ews.request.duration.milliseconds",
		metric.WithUnit("ms"),
		metric.WithDescription("Duration in milliseconds of EWS operations"),
	); err != nil {
		return nil, fmt.Errorf("ews: failed to register metric: %w", err)
	}

	return in, nil
}

func (in *instrumentation) start(ctx context.Context, operation, mailbox string) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "EWS."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			OperationAttribute.String(operation),
			MailboxAttribute.String(mailbox),
		),
	)
}

// finish records the outcome of one operation and ends its span.
func (in *instrumentation) finish(ctx context.Context, span trace.Span, operation string, start time.Time, resp *Response, err error) {
	outcome := outcomeOf(resp, err)
	attributes := []attribute.KeyValue{
		OperationAttribute.String(operation),
		OutcomeAttribute.String(outcome),
	}

	in.requests.Add(ctx, 1, metric.WithAttributes(attributes...))
	in.duration.Record(ctx, time.Since(start).Milliseconds(), metric.WithAttributes(attributes...))

	span.SetAttributes(OutcomeAttribute.String(outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	} else if rerr := resp.FirstError(); rerr != nil {
		if re, ok := rerr.(*ResponseError); ok {
			span.SetAttributes(ResponseCodeAttribute.String(string(re.Code)))
		}
	}
	span.End()
}

func outcomeOf(resp *Response, err error) string {
	if err != nil {
		return outcomeFailed
	}
	outcome := outcomeSuccess
	for _, m := range resp.Messages() {
		switch m.ResponseClass {
		case ResponseClassError:
			return outcomeError
		case ResponseClassWarning:
			outcome = outcomeWarning
		}
	}
	return outcome
}
