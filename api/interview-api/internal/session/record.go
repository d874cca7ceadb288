// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"strings"
	"sync"

	internal_question "github.com/rapidaai/interview-api/api/interview-api/internal/question"
	internal_transcription "github.com/rapidaai/interview-api/api/interview-api/internal/transcription"
)

// Record holds the identity and live turn state for one candidate session.
// Identity fields are immutable after creation; everything else is guarded by
// the record's own mutex so the turn guard's admission check and the
// transcript buffer mutate atomically.
type Record struct {
	SessionID    string
	ConnectionID string
	UserID       string

	mu sync.Mutex

	// transcript accumulates final-transcript fragments for the turn in
	// progress, in delivery order. Snapshotted and cleared on admission.
	transcript []string

	// isProcessing and isFinalizing are the two-phase turn guard. Both are
	// set in one critical section on admission; recovery logic needs to tell
	// "about to finalize" apart from "finalization in flight".
	isProcessing bool
	isFinalizing bool

	sequencer *internal_question.Sequencer
	handle    internal_transcription.Handle

	// bridgeRestarts counts reopen attempts for the current turn. Reset when
	// the guard clears so each turn gets one recovery attempt.
	bridgeRestarts int
}

// NewRecord creates a session record positioned at the sequencer's current
// question, with an empty transcript buffer and cleared guard flags.
func NewRecord(sessionID, connectionID, userID string, sequencer *internal_question.Sequencer) *Record {
	return &Record{
		SessionID:    sessionID,
		ConnectionID: connectionID,
		UserID:       userID,
		sequencer:    sequencer,
	}
}

// Sequencer returns the session's question sequencer. The caller must hold
// the session's single-worker guarantee; the sequencer itself is not locked.
func (r *Record) Sequencer() *internal_question.Sequencer {
	return r.sequencer
}

// AppendTranscript adds one final-transcript fragment to the turn buffer.
func (r *Record) AppendTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = append(r.transcript, text)
}

// TranscriptPreview returns the buffered turn transcript joined for display.
func (r *Record) TranscriptPreview() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.transcript, " ")
}

// BeginTurnCompletion is the guard's admission point. In one critical section
// it checks both guard flags and the buffered answer length; on admission it
// sets both flags, snapshots the buffer as the answer and clears it for the
// next turn. A false return means the signal must be dropped with no state
// change.
func (r *Record) BeginTurnCompletion(minRunes int) (answer string, admitted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isProcessing || r.isFinalizing {
		return "", false
	}
	answer = strings.TrimSpace(strings.Join(r.transcript, " "))
	if len([]rune(answer)) < minRunes {
		return "", false
	}

	r.isProcessing = true
	r.isFinalizing = true
	r.transcript = nil
	return answer, true
}

// EndTurnCompletion clears both guard flags and the per-turn restart budget,
// re-arming the guard for the next end-of-turn signal.
func (r *Record) EndTurnCompletion() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isProcessing = false
	r.isFinalizing = false
	r.bridgeRestarts = 0
}

// IsFinalizing reports whether a turn completion is in flight. Audio arriving
// while true is discarded, not buffered.
func (r *Record) IsFinalizing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isFinalizing
}

// MarkBridgeRestart consumes one reopen attempt for the current turn and
// returns how many have been used.
func (r *Record) MarkBridgeRestart() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridgeRestarts++
	return r.bridgeRestarts
}

// SetHandle installs the live transcription handle. The record exclusively
// owns it until CloseHandle.
func (r *Record) SetHandle(handle internal_transcription.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handle = handle
}

// Handle returns the live transcription handle, or nil after CloseHandle.
func (r *Record) Handle() internal_transcription.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// CloseHandle releases the owned transcription connection. Idempotent and
// safe on a record that never opened one.
func (r *Record) CloseHandle() error {
	r.mu.Lock()
	handle := r.handle
	r.handle = nil
	r.mu.Unlock()

	if handle == nil {
		return nil
	}
	return handle.Close()
}
