// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_question

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bank = []string{"q1", "q2", "q3"}

// --- Constructor Tests ---

func TestNewSequencer_Validation(t *testing.T) {
	_, err := NewSequencer(nil, 1)
	assert.Error(t, err)

	_, err = NewSequencer(bank, 0)
	assert.Error(t, err)

	_, err = NewSequencer(bank, 5)
	assert.Error(t, err)

	// len+1 is the completed position, still legal.
	s, err := NewSequencer(bank, 4)
	require.NoError(t, err)
	assert.True(t, s.IsComplete())
}

// --- Advance Tests ---

func TestSequencerAdvance_WalksInOrder(t *testing.T) {
	s, err := NewSequencer(bank, 1)
	require.NoError(t, err)

	question, ok := s.Question()
	require.True(t, ok)
	assert.Equal(t, "q1", question)
	assert.Equal(t, 1, s.Current())
	assert.Equal(t, 3, s.Total())

	next, complete, err := s.Advance()
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, "q2", next)
	assert.Equal(t, 2, s.Current())

	next, complete, err = s.Advance()
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, "q3", next)
}

func TestSequencerAdvance_CompletesOnLastQuestion(t *testing.T) {
	s, err := NewSequencer(bank, 3)
	require.NoError(t, err)
	assert.False(t, s.IsComplete())

	next, complete, err := s.Advance()
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Empty(t, next)
	assert.True(t, s.IsComplete())

	_, ok := s.Question()
	assert.False(t, ok)
}

func TestSequencerAdvance_Exhausted(t *testing.T) {
	s, err := NewSequencer(bank, 3)
	require.NoError(t, err)

	_, complete, err := s.Advance()
	require.NoError(t, err)
	require.True(t, complete)

	_, _, err = s.Advance()
	assert.ErrorIs(t, err, ErrSequencerExhausted)
	assert.Equal(t, 4, s.Current())
}
