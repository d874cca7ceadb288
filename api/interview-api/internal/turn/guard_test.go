// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_turn

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_question "github.com/rapidaai/interview-api/api/interview-api/internal/question"
	internal_session "github.com/rapidaai/interview-api/api/interview-api/internal/session"
	"github.com/rapidaai/interview-api/pkg/commons"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return NewGuard(logger)
}

func newTestRecord(t *testing.T) *internal_session.Record {
	t.Helper()
	sequencer, err := internal_question.NewSequencer([]string{"q1", "q2"}, 1)
	require.NoError(t, err)
	return internal_session.NewRecord("session-1", "connection-1", "user-1", sequencer)
}

func TestGuardAdmit_OncePerTurn(t *testing.T) {
	guard := newTestGuard(t)
	record := newTestRecord(t)
	record.AppendTranscript("a full answer")

	answer, admitted := guard.Admit(record)
	require.True(t, admitted)
	assert.Equal(t, "a full answer", answer)

	// A second signal before Clear is dropped.
	_, admitted = guard.Admit(record)
	assert.False(t, admitted)

	guard.Clear(record)
	record.AppendTranscript("next answer")
	_, admitted = guard.Admit(record)
	assert.True(t, admitted)
}

func TestGuardAdmit_ShortAnswers(t *testing.T) {
	guard := newTestGuard(t)

	for _, fragment := range []string{"", "  ", "ok"} {
		record := newTestRecord(t)
		record.AppendTranscript(fragment)
		_, admitted := guard.Admit(record)
		assert.False(t, admitted, "fragment %q must be dropped", fragment)

		// A dropped signal leaves the buffer intact for the drop log and for
		// the next admission attempt.
		assert.Equal(t, strings.TrimSpace(fragment), record.TranscriptPreview())
	}

	record := newTestRecord(t)
	record.AppendTranscript("yes")
	_, admitted := guard.Admit(record)
	assert.True(t, admitted)
}

func TestGuardAdmit_BackToBackSignals(t *testing.T) {
	guard := newTestGuard(t)
	record := newTestRecord(t)
	record.AppendTranscript("racing answer")

	var admittedCount int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, admitted := guard.Admit(record); admitted {
				mu.Lock()
				admittedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admittedCount)
}
