/*
Package monitoring provides Prometheus metrics for the content browser.

Each Metrics value owns its registry, so the HTTP surface exposes exactly the
collectors of one server instance.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordCrawl(time.Since(start), files, dirs, err != nil)
	metrics.RecordInspection("ok", size)
	metrics.RecordUnlock("granted")
*/
package monitoring
