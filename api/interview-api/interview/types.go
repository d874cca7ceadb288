// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_api

import (
	"encoding/json"
)

// ============================================================================
// Session state machine
// ============================================================================

// sessionState is the explicit per-connection interview state. All
// transitions happen on the session worker goroutine; illegal inbound events
// for the current state fail closed with a state error.
type sessionState int

const (
	stateIdle sessionState = iota
	stateAwaitingAnswer
	stateFinalizing
	stateCompleted
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingAnswer:
		return "awaiting_answer"
	case stateFinalizing:
		return "finalizing"
	case stateCompleted:
		return "completed"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ============================================================================
// Inbound events
// ============================================================================

const (
	EventStartInterview  = "start_interview"
	EventAudioChunk      = "audio_chunk"
	EventFinishRecording = "finish_recording"
	EventGetHistory      = "get_history"
)

type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type startInterviewRequest struct {
	UserID         string `json:"userId"`
	JobDescription string `json:"jobDescription"`
	TotalQuestions int    `json:"totalQuestions"`
}

type audioChunkRequest struct {
	Audio string `json:"audio"`
}

type getHistoryRequest struct {
	SessionID string `json:"sessionId"`
}

// ============================================================================
// Outbound events
// ============================================================================

const (
	EventInterviewStarted   = "interview_started"
	EventQuestionAudio      = "question_audio"
	EventInterimTranscript  = "interim_transcript"
	EventAnswerSaved        = "answer_saved"
	EventNextQuestion       = "next_question"
	EventInterviewCompleted = "interview_completed"
	EventInterviewError     = "interview_error"
	EventInterviewHistory   = "interview_history"
)

// Error kinds surfaced on interview_error events.
const (
	errTransport  = "transport_error"
	errProvider   = "provider_error"
	errState      = "state_error"
	errValidation = "validation_error"
)

type questionPayload struct {
	SessionID       string `json:"sessionId"`
	Question        string `json:"question"`
	CurrentQuestion int    `json:"currentQuestion"`
	TotalQuestions  int    `json:"totalQuestions"`
}

type questionAudioPayload struct {
	SessionID string `json:"sessionId"`
	Audio     string `json:"audio"`
}

type transcriptPayload struct {
	Content string `json:"content"`
	IsFinal bool   `json:"isFinal"`
}

type answerSavedPayload struct {
	SessionID string `json:"sessionId"`
}

type completedPayload struct {
	SessionID       string `json:"sessionId"`
	CurrentQuestion int    `json:"currentQuestion"`
	TotalQuestions  int    `json:"totalQuestions"`
}

type errorPayload struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type historyEntry struct {
	QuestionIndex int    `json:"questionIndex"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
}

type historyPayload struct {
	SessionID string         `json:"sessionId"`
	Content   []historyEntry `json:"content"`
}
