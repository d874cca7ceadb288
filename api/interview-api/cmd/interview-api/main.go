// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	internal_question "github.com/rapidaai/interview-api/api/interview-api/internal/question"
	internal_store "github.com/rapidaai/interview-api/api/interview-api/internal/store"
	internal_synthesis "github.com/rapidaai/interview-api/api/interview-api/internal/synthesis"
	internal_transcription "github.com/rapidaai/interview-api/api/interview-api/internal/transcription"
	interviewApi "github.com/rapidaai/interview-api/api/interview-api/interview"
	routers "github.com/rapidaai/interview-api/api/interview-api/router"
	"github.com/rapidaai/interview-api/config"
	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/connectors"
)

const shutdownTimeout = 15 * time.Second

func main() {
	v, err := config.InitConfig()
	if err != nil {
		log.Fatalf("failed to read configuration: %v", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postgres, err := connectors.NewPostgresConnector(cfg.PostgresConfig, logger)
	if err != nil {
		logger.Errorw("failed to connect to postgres", "error", err)
		return
	}
	defer postgres.Close()

	store := internal_store.NewStore(postgres, logger)
	if err := store.Migrate(ctx); err != nil {
		logger.Errorw("failed to migrate interview tables", "error", err)
		return
	}

	transcriber, err := internal_transcription.NewDeepgramTranscriber(logger, cfg.DeepgramConfig)
	if err != nil {
		logger.Errorw("failed to configure transcription", "error", err)
		return
	}
	generator, err := internal_question.NewOpenAIGenerator(logger, cfg.OpenAIConfig)
	if err != nil {
		logger.Errorw("failed to configure question generation", "error", err)
		return
	}
	synthesizer, err := internal_synthesis.NewGoogleSynthesizer(ctx, logger, cfg.GoogleTTSConfig)
	if err != nil {
		logger.Errorw("failed to configure speech synthesis", "error", err)
		return
	}
	defer synthesizer.Close()

	api := interviewApi.NewInterviewApi(cfg, logger, store, generator, synthesizer, transcriber)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		AllowWebSockets: true,
		MaxAge:          12 * time.Hour,
	}))

	routers.HealthCheckRoutes(cfg, engine, logger, postgres)
	routers.InterviewApiRoutes(cfg, engine, logger, api)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	go func() {
		logger.Infow("interview api listening", "addr", server.Addr, "version", cfg.Version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}
