package tracing

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Middleware opens a span per request, honoring incoming trace headers and
// echoing the identifiers on the response.
func Middleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		traceID, parentID := Extract(c.Request.Header)
		if traceID != "" {
			ctx = context.WithValue(ctx, traceIDKey, traceID)
		}
		if parentID != "" {
			ctx = context.WithValue(ctx, spanIDKey, parentID)
		}

		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}
		span, ctx := tracer.Start(ctx, c.Request.Method+" "+name)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.Status = c.Writer.Status()
		span.Annotate(zap.String("path", c.Request.URL.Path))

		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}
		tracer.End(span, err)
	}
}
