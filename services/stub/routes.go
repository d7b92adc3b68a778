// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stub

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ServiceName is the otel service name of the stub.
const ServiceName = "forge-stub"

// SetupRoutes registers the contract endpoints on router.
func SetupRoutes(router *gin.Engine, b *Backend) {
	router.GET("/health", b.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/upload_repo", b.handleRegister)
	router.POST("/simulate_attack", b.handleSimulate)
	router.GET("/reports/:repo_id/:run_id", b.handleReport)
	router.GET("/analytics/summary", b.handleAnalytics)

	api := router.Group("/api")
	{
		api.GET("/simulations/list", b.handleList)
		api.GET("/gradient/status", b.handleCompute)

		ai := api.Group("/gemini", b.credentialMiddleware())
		{
			ai.POST("", b.handleQuery)
			ai.GET("/insight/:repo_id", b.handleInsight)
		}
	}
}

// NewRouter returns a gin engine with recovery, tracing and metrics
// middleware and every contract route.
func NewRouter(b *Backend) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	router.Use(metricsMiddleware())
	SetupRoutes(router, b)
	return router
}
