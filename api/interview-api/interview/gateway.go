// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	internal_question "github.com/rapidaai/interview-api/api/interview-api/internal/question"
	internal_session "github.com/rapidaai/interview-api/api/interview-api/internal/session"
	internal_store "github.com/rapidaai/interview-api/api/interview-api/internal/store"
	internal_synthesis "github.com/rapidaai/interview-api/api/interview-api/internal/synthesis"
	internal_transcription "github.com/rapidaai/interview-api/api/interview-api/internal/transcription"
	internal_turn "github.com/rapidaai/interview-api/api/interview-api/internal/turn"
	"github.com/rapidaai/interview-api/config"
	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/utils"
)

var interviewUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// InterviewApi routes inbound connection events to the orchestration core
// and emits outbound events back to the candidate's connection.
type InterviewApi struct {
	cfg    *config.AppConfig
	logger commons.Logger

	registry    *internal_session.Registry
	guard       *internal_turn.Guard
	store       internal_store.Store
	generator   internal_question.Generator
	synthesizer internal_synthesis.Synthesizer
	transcriber internal_transcription.Transcriber
}

// NewInterviewApi creates the gateway with its collaborators.
func NewInterviewApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	store internal_store.Store,
	generator internal_question.Generator,
	synthesizer internal_synthesis.Synthesizer,
	transcriber internal_transcription.Transcriber,
) *InterviewApi {
	return &InterviewApi{
		cfg:         cfg,
		logger:      logger,
		registry:    internal_session.NewRegistry(logger),
		guard:       internal_turn.NewGuard(logger),
		store:       store,
		generator:   generator,
		synthesizer: synthesizer,
		transcriber: transcriber,
	}
}

// Registry exposes the session registry for readiness reporting.
func (i *InterviewApi) Registry() *internal_session.Registry {
	return i.registry
}

// Connect upgrades the request to a websocket and runs one interview
// connection until the candidate disconnects.
//
// @Router /v1/interview/connect [get]
// @Summary Connect for a live voice interview
// @Produce json
// @Success 101 "Switching Protocols"
// @Failure 400 {object} gin.H
func (i *InterviewApi) Connect(c *gin.Context) {
	conn, err := interviewUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		i.logger.Errorf("websocket upgrade failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to upgrade to websocket"})
		return
	}
	defer conn.Close()

	connectionID := uuid.New().String()
	i.logger.Infow("interview connection opened", "connection", connectionID)

	w := newSessionWorker(i, conn, connectionID)
	utils.Go(i.logger, w.run)

	i.readLoop(conn, w)

	w.push(evDisconnect{})
	<-w.finished
	i.logger.Infow("interview connection closed", "connection", connectionID)
}

// readLoop decodes inbound frames and forwards them to the session worker in
// arrival order. Returns when the connection dies.
func (i *InterviewApi) readLoop(conn *websocket.Conn, w *sessionWorker) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				i.logger.Debugf("connection %s read ended: %v", w.connectionID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var envelope inboundEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			w.emitter.EmitError(errValidation, "malformed event")
			continue
		}

		// Audio stays on the read loop so chunks reach the bridge in arrival
		// order and are dropped the moment a turn starts finalizing.
		if envelope.Type == EventAudioChunk {
			w.handleAudioChunk(envelope.Data)
			continue
		}
		w.push(evInbound{envelope: envelope})
	}
}
