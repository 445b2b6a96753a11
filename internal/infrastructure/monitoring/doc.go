/*
Package monitoring provides Prometheus metrics for the webview bridge.

# Overview

Each bridge owns a Metrics value with its own registry. The bridge updates
it as routes are added and disposed, sockets register and disconnect,
events cross the WebSocket, and resource requests are served or denied.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

The /metrics route is only mounted when WEBVIEW_METRICS_ENABLED is set.
*/
package monitoring
