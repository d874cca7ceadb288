// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_api

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	internal_entity "github.com/rapidaai/interview-api/api/interview-api/internal/entity"
	internal_transcription "github.com/rapidaai/interview-api/api/interview-api/internal/transcription"
)

// ============================================================================
// Store stub
// ============================================================================

type stubStore struct {
	mu       sync.Mutex
	sessions map[string]*internal_entity.InterviewSession
	answers  []*internal_entity.InterviewAnswer

	createErr     error
	saveAnswerErr error
}

func newStubStore() *stubStore {
	return &stubStore{sessions: make(map[string]*internal_entity.InterviewSession)}
}

func (s *stubStore) Migrate(ctx context.Context) error { return nil }

func (s *stubStore) CreateSession(ctx context.Context, session *internal_entity.InterviewSession) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	if session.SessionID == "" {
		session.SessionID = uuid.New().String()
	}
	s.sessions[session.SessionID] = session
	return session.SessionID, nil
}

func (s *stubStore) GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("interview session not found: %s", sessionID)
	}
	return session, nil
}

func (s *stubStore) UpdateSession(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("interview session not found: %s", sessionID)
	}
	if status, ok := fields["status"].(string); ok {
		session.Status = status
	}
	if current, ok := fields["current_question"].(int); ok {
		session.CurrentQuestion = current
	}
	return nil
}

func (s *stubStore) SaveAnswer(ctx context.Context, answer *internal_entity.InterviewAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveAnswerErr != nil {
		return s.saveAnswerErr
	}
	s.answers = append(s.answers, answer)
	return nil
}

func (s *stubStore) GetAnswers(ctx context.Context, sessionID string) ([]*internal_entity.InterviewAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*internal_entity.InterviewAnswer
	for _, answer := range s.answers {
		if answer.SessionID == sessionID {
			out = append(out, answer)
		}
	}
	return out, nil
}

func (s *stubStore) Complete(ctx context.Context, sessionID string) error {
	return s.UpdateSession(ctx, sessionID, map[string]interface{}{"status": internal_entity.StatusCompleted})
}

func (s *stubStore) answerCount(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, answer := range s.answers {
		if answer.SessionID == sessionID {
			count++
		}
	}
	return count
}

func (s *stubStore) sessionStatus(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session.Status
	}
	return ""
}

// ============================================================================
// Generator stub
// ============================================================================

type stubGenerator struct {
	mu  sync.Mutex
	err error
}

func (g *stubGenerator) Generate(ctx context.Context, jobDescription string, count int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	questions := make([]string, count)
	for i := range questions {
		questions[i] = fmt.Sprintf("question %d", i+1)
	}
	return questions, nil
}

// ============================================================================
// Synthesizer stub
// ============================================================================

type stubSynthesizer struct {
	mu      sync.Mutex
	err     error
	gate    chan struct{}
	started chan string
}

func newStubSynthesizer() *stubSynthesizer {
	return &stubSynthesizer{started: make(chan string, 16)}
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.started <- text
	s.mu.Lock()
	gate := s.gate
	err := s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []byte("audio:" + text), nil
}

func (s *stubSynthesizer) setGate(gate chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
}

func (s *stubSynthesizer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ============================================================================
// Transcriber stub
// ============================================================================

type stubBridge struct {
	mu       sync.Mutex
	sends    [][]byte
	open     bool
	listener internal_transcription.Listener
}

func (b *stubBridge) Send(audio []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return internal_transcription.ErrChannelClosed
	}
	buf := make([]byte, len(audio))
	copy(buf, audio)
	b.sends = append(b.sends, buf)
	return nil
}

func (b *stubBridge) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *stubBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	return nil
}

func (b *stubBridge) markDead() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
}

func (b *stubBridge) sendCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sends)
}

type stubTranscriber struct {
	mu      sync.Mutex
	bridges []*stubBridge
	openErr error
}

func (t *stubTranscriber) Open(ctx context.Context, cfg internal_transcription.StreamConfig, listener internal_transcription.Listener) (internal_transcription.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return nil, t.openErr
	}
	bridge := &stubBridge{open: true, listener: listener}
	t.bridges = append(t.bridges, bridge)
	return bridge, nil
}

func (t *stubTranscriber) bridge(index int) *stubBridge {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index >= len(t.bridges) {
		return nil
	}
	return t.bridges[index]
}

func (t *stubTranscriber) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bridges)
}
