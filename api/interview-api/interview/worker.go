// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	internal_entity "github.com/rapidaai/interview-api/api/interview-api/internal/entity"
	internal_question "github.com/rapidaai/interview-api/api/interview-api/internal/question"
	internal_session "github.com/rapidaai/interview-api/api/interview-api/internal/session"
	internal_transcription "github.com/rapidaai/interview-api/api/interview-api/internal/transcription"
	"github.com/rapidaai/interview-api/pkg/utils"
)

const (
	mailboxSize = 256

	// maxQuestionCount caps a single interview regardless of the request.
	maxQuestionCount = 20

	generateTimeout = 60 * time.Second
	finalizeTimeout = 30 * time.Second
	storeTimeout    = 10 * time.Second
)

// ============================================================================
// Mailbox events
// ============================================================================

// All session mutations flow through one mailbox consumed by one worker
// goroutine, so delivery order is preserved without relying on callback
// registration order.
type event interface{}

type evInbound struct {
	envelope inboundEnvelope
}

type evEndOfTurn struct {
	manual bool
}

type evBridgeError struct {
	err error
}

type evDisconnect struct{}

// ============================================================================
// Session worker
// ============================================================================

type sessionWorker struct {
	api          *InterviewApi
	connectionID string
	emitter      *emitter

	// state is touched only by the worker goroutine. record is read from the
	// read loop and bridge goroutines too, hence the atomic pointer.
	state  sessionState
	record atomic.Pointer[internal_session.Record]

	mailbox  chan event
	finished chan struct{}
}

func (w *sessionWorker) currentRecord() *internal_session.Record {
	return w.record.Load()
}

func newSessionWorker(api *InterviewApi, conn *websocket.Conn, connectionID string) *sessionWorker {
	return &sessionWorker{
		api:          api,
		connectionID: connectionID,
		emitter:      newEmitter(api.logger, conn),
		state:        stateIdle,
		mailbox:      make(chan event, mailboxSize),
		finished:     make(chan struct{}),
	}
}

// push forwards one event to the worker, blocking while the mailbox is full.
// Used by the connection read loop; order of inbound events is preserved.
func (w *sessionWorker) push(ev event) {
	select {
	case w.mailbox <- ev:
	case <-w.finished:
	}
}

// tryPush forwards one event without blocking. Used by bridge callbacks:
// blocking there could deadlock teardown, and the turn guard deduplicates
// anything dropped under pressure.
func (w *sessionWorker) tryPush(ev event) {
	select {
	case <-w.finished:
		return
	default:
	}
	select {
	case w.mailbox <- ev:
	default:
		w.api.logger.Debugf("connection %s mailbox full, dropped %T", w.connectionID, ev)
	}
}

func (w *sessionWorker) run() {
	defer close(w.finished)

	for ev := range w.mailbox {
		switch ev := ev.(type) {
		case evInbound:
			w.handleInbound(ev.envelope)
		case evEndOfTurn:
			w.handleEndOfTurn(ev.manual)
		case evBridgeError:
			w.handleBridgeError(ev.err)
		case evDisconnect:
			w.handleDisconnect()
			return
		}
	}
}

// ============================================================================
// Bridge listener
// ============================================================================

// The worker is the bridge's listener. Transcript fragments go straight onto
// the record's buffer (its own lock makes that safe from the bridge
// goroutine); turn signals are serialized through the mailbox.

func (w *sessionWorker) OnInterimTranscript(text string) {
	w.emitter.Emit(EventInterimTranscript, transcriptPayload{Content: text, IsFinal: false})
}

func (w *sessionWorker) OnFinalTranscript(text string) {
	if record := w.currentRecord(); record != nil {
		record.AppendTranscript(text)
	}
	w.emitter.Emit(EventInterimTranscript, transcriptPayload{Content: text, IsFinal: true})
}

func (w *sessionWorker) OnEndOfTurn() {
	w.tryPush(evEndOfTurn{manual: false})
}

func (w *sessionWorker) OnError(err error) {
	w.tryPush(evBridgeError{err: err})
}

// ============================================================================
// Inbound events
// ============================================================================

func (w *sessionWorker) handleInbound(envelope inboundEnvelope) {
	switch envelope.Type {
	case EventStartInterview:
		w.handleStartInterview(envelope.Data)
	case EventFinishRecording:
		w.handleEndOfTurn(true)
	case EventGetHistory:
		w.handleGetHistory(envelope.Data)
	default:
		w.emitter.EmitError(errValidation, "unknown event type: "+envelope.Type)
	}
}

func (w *sessionWorker) handleStartInterview(data json.RawMessage) {
	if w.state != stateIdle {
		w.emitter.EmitError(errState, "interview already started on this connection")
		return
	}

	var req startInterviewRequest
	if err := json.Unmarshal(data, &req); err != nil || utils.IsEmpty(req.UserID) {
		w.emitter.EmitError(errValidation, "start_interview requires a userId")
		return
	}

	count := req.TotalQuestions
	if count <= 0 {
		count = w.api.cfg.DefaultQuestionCount
	}
	if count > maxQuestionCount {
		count = maxQuestionCount
	}

	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	questions, err := w.api.generator.Generate(ctx, req.JobDescription, count)
	if err != nil {
		w.api.logger.Errorw("question generation failed", "connection", w.connectionID, "error", err)
		w.emitter.EmitError(errProvider, "unable to prepare interview questions")
		return
	}

	session := &internal_entity.InterviewSession{
		UserID:          req.UserID,
		Status:          internal_entity.StatusActive,
		JobDescription:  req.JobDescription,
		TotalQuestions:  count,
		CurrentQuestion: 1,
	}
	if err := session.SetQuestionBank(questions); err != nil {
		w.emitter.EmitError(errState, "unable to start interview")
		return
	}
	sessionID, err := w.api.store.CreateSession(ctx, session)
	if err != nil {
		w.api.logger.Errorw("session persistence failed", "connection", w.connectionID, "error", err)
		w.emitter.EmitError(errProvider, "unable to start interview")
		return
	}

	sequencer, err := internal_question.NewSequencer(questions, 1)
	if err != nil {
		w.emitter.EmitError(errState, "unable to start interview")
		return
	}
	record := internal_session.NewRecord(sessionID, w.connectionID, req.UserID, sequencer)
	if err := w.api.registry.Create(record); err != nil {
		w.emitter.EmitError(errState, "a session already exists for this connection")
		return
	}
	w.record.Store(record)

	if err := w.openBridge(record); err != nil {
		w.api.logger.Errorw("transcription bridge open failed", "session", sessionID, "error", err)
		w.api.registry.Remove(w.connectionID)
		w.record.Store(nil)
		w.emitter.EmitError(errTransport, "unable to open transcription stream")
		return
	}

	w.state = stateAwaitingAnswer
	w.emitter.Emit(EventInterviewStarted, questionPayload{
		SessionID:       sessionID,
		Question:        questions[0],
		CurrentQuestion: 1,
		TotalQuestions:  count,
	})
	w.emitQuestionAudio(sessionID, questions[0])

	w.api.logger.Infow("interview started",
		"session", sessionID, "user", req.UserID, "questions", count)
}

// handleAudioChunk runs on the connection read loop, not the worker: audio
// must be forwarded in arrival order and checked against the finalizing flag
// at arrival. Audio reaching a session that is finalizing its turn is
// discarded, not buffered.
func (w *sessionWorker) handleAudioChunk(data json.RawMessage) {
	record := w.currentRecord()
	if record == nil || record.IsFinalizing() {
		return
	}

	var req audioChunkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		w.emitter.EmitError(errValidation, "malformed audio_chunk event")
		return
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		w.emitter.EmitError(errValidation, "audio_chunk payload is not valid base64")
		return
	}

	handle := record.Handle()
	if handle == nil {
		return
	}
	if err := handle.Send(audio); err != nil {
		w.tryPush(evBridgeError{err: err})
	}
}

func (w *sessionWorker) handleGetHistory(data json.RawMessage) {
	var req getHistoryRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			w.emitter.EmitError(errValidation, "malformed get_history event")
			return
		}
	}
	sessionID := req.SessionID
	if sessionID == "" {
		if record := w.currentRecord(); record != nil {
			sessionID = record.SessionID
		}
	}
	if sessionID == "" {
		w.emitter.EmitError(errValidation, "get_history requires a sessionId")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	answers, err := w.api.store.GetAnswers(ctx, sessionID)
	if err != nil {
		w.emitter.EmitError(errProvider, "unable to load interview history")
		return
	}

	content := make([]historyEntry, 0, len(answers))
	for _, answer := range answers {
		content = append(content, historyEntry{
			QuestionIndex: answer.QuestionIndex,
			Question:      answer.Question,
			Answer:        answer.Answer,
		})
	}
	w.emitter.Emit(EventInterviewHistory, historyPayload{SessionID: sessionID, Content: content})
}

// ============================================================================
// Turn completion
// ============================================================================

func (w *sessionWorker) handleEndOfTurn(manual bool) {
	record := w.currentRecord()
	if w.state != stateAwaitingAnswer || record == nil {
		if manual {
			w.emitter.EmitError(errState, "no answer in progress to finish")
		}
		return
	}

	answer, admitted := w.api.guard.Admit(record)
	if !admitted {
		return
	}
	w.state = stateFinalizing
	w.finalizeTurn(record, answer)
}

// finalizeTurn persists the admitted answer and prepares the next question.
// The persistence write and the synthesis call run concurrently; both must
// settle before the guard re-arms.
func (w *sessionWorker) finalizeTurn(record *internal_session.Record, answer string) {
	sequencer := record.Sequencer()
	questionIndex := sequencer.Current()
	questionText, _ := sequencer.Question()

	next, complete, err := sequencer.Advance()
	if err != nil {
		w.api.guard.Clear(record)
		w.state = stateCompleted
		w.emitter.EmitError(errState, "interview already completed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	var audio []byte
	var persistErr, synthErr error
	var g errgroup.Group

	g.Go(func() error {
		persistErr = w.persistAnswer(ctx, record, questionIndex, questionText, answer)
		return nil
	})
	if !complete {
		g.Go(func() error {
			audio, synthErr = w.api.synthesizer.Synthesize(ctx, next)
			return nil
		})
	}
	g.Wait()

	if persistErr != nil {
		w.api.logger.Errorw("answer persistence failed",
			"session", record.SessionID, "question", questionIndex, "error", persistErr)
		w.emitter.EmitError(errProvider, "unable to save your answer")
	} else {
		w.emitter.Emit(EventAnswerSaved, answerSavedPayload{SessionID: record.SessionID})
	}

	if complete {
		w.completeInterview(record)
		return
	}

	w.emitter.Emit(EventNextQuestion, questionPayload{
		SessionID:       record.SessionID,
		Question:        next,
		CurrentQuestion: sequencer.Current(),
		TotalQuestions:  sequencer.Total(),
	})
	if synthErr != nil {
		w.api.logger.Errorw("question synthesis failed",
			"session", record.SessionID, "question", sequencer.Current(), "error", synthErr)
		w.emitter.EmitError(errProvider, "unable to synthesize the next question")
	} else {
		w.emitter.Emit(EventQuestionAudio, questionAudioPayload{
			SessionID: record.SessionID,
			Audio:     base64.StdEncoding.EncodeToString(audio),
		})
	}

	// The answer is recorded either way; re-arm the guard so the session
	// cannot deadlock on a provider failure.
	w.api.guard.Clear(record)
	w.state = stateAwaitingAnswer
}

func (w *sessionWorker) persistAnswer(ctx context.Context, record *internal_session.Record, questionIndex int, questionText, answer string) error {
	if err := w.api.store.SaveAnswer(ctx, &internal_entity.InterviewAnswer{
		SessionID:     record.SessionID,
		QuestionIndex: questionIndex,
		Question:      questionText,
		Answer:        answer,
	}); err != nil {
		return err
	}
	return w.api.store.UpdateSession(ctx, record.SessionID, map[string]interface{}{
		"current_question": record.Sequencer().Current(),
	})
}

func (w *sessionWorker) completeInterview(record *internal_session.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := w.api.store.Complete(ctx, record.SessionID); err != nil {
		w.api.logger.Errorw("failed to mark session completed",
			"session", record.SessionID, "error", err)
	}
	if err := record.CloseHandle(); err != nil {
		w.api.logger.Debugf("failed to close transcription handle for session %s: %v",
			record.SessionID, err)
	}

	sequencer := record.Sequencer()
	w.emitter.Emit(EventInterviewCompleted, completedPayload{
		SessionID:       record.SessionID,
		CurrentQuestion: sequencer.Current(),
		TotalQuestions:  sequencer.Total(),
	})

	w.api.guard.Clear(record)
	w.state = stateCompleted
	w.api.logger.Infow("interview completed", "session", record.SessionID, "questions", sequencer.Total())
}

// ============================================================================
// Recovery and teardown
// ============================================================================

// handleBridgeError is the single recovery transition for a dead
// transcription stream: one reopen attempt per turn, never while a turn
// completion is in flight.
func (w *sessionWorker) handleBridgeError(err error) {
	w.api.logger.Errorw("transcription bridge error",
		"connection", w.connectionID, "state", w.state.String(), "error", err)

	record := w.currentRecord()
	if w.state != stateAwaitingAnswer || record == nil {
		return
	}
	if record.IsFinalizing() {
		return
	}
	if handle := record.Handle(); handle != nil && handle.IsOpen() {
		return
	}

	if record.MarkBridgeRestart() > 1 {
		w.emitter.EmitError(errTransport, "transcription stream is unavailable")
		return
	}

	if closeErr := record.CloseHandle(); closeErr != nil {
		w.api.logger.Debugf("failed to close dead transcription handle: %v", closeErr)
	}
	if openErr := w.openBridge(record); openErr != nil {
		w.api.logger.Errorw("transcription bridge reopen failed",
			"session", record.SessionID, "error", openErr)
		w.emitter.EmitError(errTransport, "transcription stream is unavailable")
		return
	}
	w.api.logger.Infow("transcription bridge reopened", "session", record.SessionID)
}

func (w *sessionWorker) handleDisconnect() {
	w.api.logger.Debugf("connection %s disconnected in state %s", w.connectionID, w.state.String())

	// Stop outbound delivery first: in-flight work may still finish, but its
	// results must not reach a closed connection.
	w.emitter.Close()

	if record := w.currentRecord(); record != nil {
		if w.state != stateCompleted {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			if err := w.api.store.UpdateSession(ctx, record.SessionID, map[string]interface{}{
				"status": internal_entity.StatusAbandoned,
			}); err != nil {
				w.api.logger.Debugf("failed to mark session %s abandoned: %v", record.SessionID, err)
			}
			cancel()
		}
		w.api.registry.Remove(w.connectionID)
		w.record.Store(nil)
	}
	w.state = stateClosed
}

func (w *sessionWorker) openBridge(record *internal_session.Record) error {
	handle, err := w.api.transcriber.Open(context.Background(), internal_transcription.StreamConfig{
		Language:         w.api.cfg.DeepgramConfig.Language,
		InterimResults:   true,
		SilenceThreshold: time.Duration(w.api.cfg.DeepgramConfig.UtteranceEndMs) * time.Millisecond,
	}, w)
	if err != nil {
		return err
	}
	record.SetHandle(handle)
	return nil
}

func (w *sessionWorker) emitQuestionAudio(sessionID, question string) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	audio, err := w.api.synthesizer.Synthesize(ctx, question)
	if err != nil {
		w.api.logger.Errorw("question synthesis failed",
			"connection", w.connectionID, "error", err)
		w.emitter.EmitError(errProvider, "unable to synthesize the question")
		return
	}
	w.emitter.Emit(EventQuestionAudio, questionAudioPayload{
		SessionID: sessionID,
		Audio:     base64.StdEncoding.EncodeToString(audio),
	})
}
