/*
Package tracing provides lightweight request tracing.

Every browser request gets a trace ID, echoed in X-Trace-ID, and the remote
client forwards it to the content repository. Domain operations (tree
build, inspection, sandbox build) open child spans; finished spans are
logged asynchronously through zap.

	tracer := tracing.New(logger)
	defer tracer.Close()
	router.Use(tracing.Middleware(tracer))

	span, ctx := tracer.Start(ctx, "inspect")
	defer func() { tracer.End(span, err) }()
*/
package tracing
