package tracing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/browserpike/backend/internal/shared/id"
	"go.uber.org/zap"
)

// Header names used for propagation
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// TraceID identifies one browser request and everything it caused upstream
type TraceID string

// SpanID identifies one operation inside a trace
type SpanID string

// Span represents a single operation in a trace
type Span struct {
	TraceID   TraceID
	SpanID    SpanID
	ParentID  SpanID
	Name      string
	StartTime time.Time
	Duration  time.Duration
	Status    int
	Err       error

	mu     sync.Mutex
	fields []zap.Field
}

// Tracer hands finished spans to a background logger
type Tracer struct {
	logger *zap.Logger
	spans  chan *Span
	done   chan struct{}
	once   sync.Once
}

// New creates a tracer and starts its collector
func New(logger *zap.Logger) *Tracer {
	t := &Tracer{
		logger: logger,
		spans:  make(chan *Span, 1000),
		done:   make(chan struct{}),
	}

	go t.collect()

	return t
}

// Start opens a span as a child of whatever span ctx carries
func (t *Tracer) Start(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = TraceID(id.NewRequestID())
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.NewRequestID()),
		ParentID:  SpanIDFrom(ctx),
		Name:      name,
		StartTime: time.Now(),
	}

	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// End finishes the span and queues it for logging
func (t *Tracer) End(span *Span, err error) {
	span.Duration = time.Since(span.StartTime)
	if err != nil {
		span.Err = err
	}

	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("operation", span.Name),
		)
	}
}

// Close drains queued spans and stops the collector
func (t *Tracer) Close() {
	t.once.Do(func() {
		close(t.spans)
		<-t.done
	})
}

// Annotate attaches structured fields to the span
func (s *Span) Annotate(fields ...zap.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = append(s.fields, fields...)
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		t.emit(span)
	}
}

func (t *Tracer) emit(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	if span.Status != 0 {
		fields = append(fields, zap.Int("status", span.Status))
	}

	span.mu.Lock()
	fields = append(fields, span.fields...)
	span.mu.Unlock()

	if span.Err != nil {
		t.logger.Warn("span failed", append(fields, zap.Error(span.Err))...)
		return
	}
	t.logger.Debug("span completed", fields...)
}

// Extract reads propagated identifiers from request headers
func Extract(h http.Header) (TraceID, SpanID) {
	return TraceID(h.Get(HeaderTraceID)), SpanID(h.Get(HeaderSpanID))
}

// Inject writes the identifiers carried by ctx into outgoing headers
func Inject(ctx context.Context, set func(key, value string)) {
	if traceID := TraceIDFrom(ctx); traceID != "" {
		set(HeaderTraceID, string(traceID))
	}
	if spanID := SpanIDFrom(ctx); spanID != "" {
		set(HeaderSpanID, string(spanID))
	}
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDFrom retrieves the trace ID from context
func TraceIDFrom(ctx context.Context) TraceID {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	return traceID
}

// SpanIDFrom retrieves the current span ID from context
func SpanIDFrom(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanIDKey).(SpanID)
	return spanID
}

// Fields returns zap fields identifying the trace in ctx, for request logs
func Fields(ctx context.Context) []zap.Field {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		return nil
	}
	return []zap.Field{zap.String("trace_id", string(traceID))}
}
