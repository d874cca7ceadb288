// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_turn converts raw end-of-turn signals into at most one
// finalize action per turn. The admission state itself lives on the session
// record; the guard owns the policy and the logging around it.
package internal_turn

import (
	internal_session "github.com/rapidaai/interview-api/api/interview-api/internal/session"
	"github.com/rapidaai/interview-api/pkg/commons"
)

// MinimumAnswerRunes is the smallest trimmed answer that counts as real
// speech. Anything shorter is silence or a transcription artifact and the
// end-of-turn signal is dropped.
const MinimumAnswerRunes = 3

// Guard admits or drops end-of-turn signals for sessions.
type Guard struct {
	logger commons.Logger
}

// NewGuard creates a turn-completion guard.
func NewGuard(logger commons.Logger) *Guard {
	return &Guard{logger: logger}
}

// Admit decides whether an end-of-turn signal starts a finalize action. On
// admission the session's guard flags are raised and the buffered transcript
// is returned as the answer; the caller must call Clear exactly once when the
// finalize action completes, success or error. A dropped signal is a no-op.
func (g *Guard) Admit(record *internal_session.Record) (answer string, admitted bool) {
	answer, admitted = record.BeginTurnCompletion(MinimumAnswerRunes)
	if !admitted {
		g.logger.Debugf("dropped end-of-turn signal for session %s: guard busy or answer too short (buffer %q)",
			record.SessionID, record.TranscriptPreview())
		return "", false
	}
	g.logger.Debugf("admitted end-of-turn for session %s, answer %d bytes", record.SessionID, len(answer))
	return answer, true
}

// Clear re-arms the guard after a finalize action completed.
func (g *Guard) Clear(record *internal_session.Record) {
	record.EndTurnCompletion()
}
