// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_question

import (
	"errors"
	"fmt"
)

// ErrSequencerExhausted is returned by Advance once the sequencer already
// reported completion. Callers must check IsComplete before re-invoking.
var ErrSequencerExhausted = errors.New("question sequencer is exhausted")

// Sequencer walks a fixed question bank with a 1-based cursor. The cursor
// names the question currently being answered; the interview is complete once
// the cursor moves past the last question. The sequencer performs no I/O and
// is not safe for concurrent use; the owning session serializes access.
type Sequencer struct {
	questions []string
	current   int
}

// NewSequencer creates a sequencer positioned at the given 1-based question
// index.
func NewSequencer(questions []string, current int) (*Sequencer, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	if current < 1 || current > len(questions)+1 {
		return nil, fmt.Errorf("illegal question index %d for bank of %d", current, len(questions))
	}
	return &Sequencer{questions: questions, current: current}, nil
}

// Current returns the 1-based index of the question now being answered.
func (s *Sequencer) Current() int {
	return s.current
}

// Total returns the number of questions in the bank.
func (s *Sequencer) Total() int {
	return len(s.questions)
}

// IsComplete reports whether the cursor has moved past the last question.
func (s *Sequencer) IsComplete() bool {
	return s.current > len(s.questions)
}

// Question returns the question at the cursor, or false once complete.
func (s *Sequencer) Question() (string, bool) {
	if s.IsComplete() {
		return "", false
	}
	return s.questions[s.current-1], true
}

// Advance moves the cursor to the next question. It returns the next
// question text, or complete=true when the cursor moves past the last
// question. Advancing an already-complete sequencer fails with
// ErrSequencerExhausted.
func (s *Sequencer) Advance() (next string, complete bool, err error) {
	if s.IsComplete() {
		return "", false, ErrSequencerExhausted
	}
	s.current++
	if s.IsComplete() {
		return "", true, nil
	}
	return s.questions[s.current-1], false, nil
}
