// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_routers

import (
	"github.com/gin-gonic/gin"

	healthCheckApi "github.com/rapidaai/interview-api/api/healthcheck-api"
	interviewApi "github.com/rapidaai/interview-api/api/interview-api/interview"
	"github.com/rapidaai/interview-api/config"
	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/connectors"
)

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, postgres connectors.PostgresConnector) {
	logger.Info("Internal HealthCheckRoutes and Connectors added to engine.")
	apiv1 := engine.Group("")
	hcApi := healthCheckApi.New(cfg, logger, postgres)
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}

func InterviewApiRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, api *interviewApi.InterviewApi) {
	logger.Info("InterviewApiRoutes added to engine.")
	apiv1 := engine.Group("/v1/interview")
	{
		apiv1.GET("/connect", api.Connect)
		apiv1.GET("/:sessionId/history", api.GetHistory)
	}
}
