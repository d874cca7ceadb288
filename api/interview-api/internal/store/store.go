// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	internal_entity "github.com/rapidaai/interview-api/api/interview-api/internal/entity"
	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/connectors"
)

// Store provides operations to save and retrieve interview sessions from Postgres.
//
// Interview sessions are session-scoped records that outlive the websocket
// connection: history queries must keep working after the candidate disconnects,
// so rows are never deleted during the interview lifecycle — they only move
// through statuses: pending → active → completed/abandoned.
type Store interface {
	// CreateSession stores an interview session with a generated sessionId (UUID)
	// when none is set. Returns the sessionId.
	CreateSession(ctx context.Context, session *internal_entity.InterviewSession) (string, error)

	// GetSession retrieves a session by sessionId regardless of its status.
	GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error)

	// UpdateSession sets a subset of columns on an existing session row.
	// Only allowlisted columns are updatable.
	UpdateSession(ctx context.Context, sessionID string, fields map[string]interface{}) error

	// SaveAnswer appends one finalised answer for one question.
	SaveAnswer(ctx context.Context, answer *internal_entity.InterviewAnswer) error

	// GetAnswers returns all answers for a session ordered by question index.
	GetAnswers(ctx context.Context, sessionID string) ([]*internal_entity.InterviewAnswer, error)

	// Complete marks a session completed. The row remains readable for history.
	Complete(ctx context.Context, sessionID string) error

	// Migrate creates/updates the backing tables.
	Migrate(ctx context.Context) error
}

// Allowlist of updatable session columns.
var updatableSessionColumns = map[string]bool{
	"status":           true,
	"current_question": true,
	"total_questions":  true,
}

type postgresStore struct {
	postgres connectors.PostgresConnector
	logger   commons.Logger
}

// NewStore creates a new interview session store backed by Postgres.
func NewStore(postgres connectors.PostgresConnector, logger commons.Logger) Store {
	return &postgresStore{
		postgres: postgres,
		logger:   logger,
	}
}

func (s *postgresStore) Migrate(ctx context.Context) error {
	db := s.postgres.DB(ctx)
	if err := db.AutoMigrate(&internal_entity.InterviewSession{}, &internal_entity.InterviewAnswer{}); err != nil {
		return fmt.Errorf("failed to migrate interview tables: %w", err)
	}
	return nil
}

// CreateSession stores an interview session with a generated UUID as the sessionId.
func (s *postgresStore) CreateSession(ctx context.Context, session *internal_entity.InterviewSession) (string, error) {
	if session.SessionID == "" {
		session.SessionID = uuid.New().String()
	}

	db := s.postgres.DB(ctx)
	if err := db.Create(session).Error; err != nil {
		return "", fmt.Errorf("failed to save interview session %s: %w", session.SessionID, err)
	}

	s.logger.Infof("saved interview session: sessionId=%s, user=%s, questions=%d",
		session.SessionID, session.UserID, session.TotalQuestions)

	return session.SessionID, nil
}

// GetSession retrieves a session by sessionId regardless of its status.
// History queries arrive after the interview ended, so completed and abandoned
// rows stay readable.
func (s *postgresStore) GetSession(ctx context.Context, sessionID string) (*internal_entity.InterviewSession, error) {
	db := s.postgres.DB(ctx)
	var session internal_entity.InterviewSession
	if err := db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, fmt.Errorf("interview session not found: %s: %w", sessionID, err)
	}

	s.logger.Debugf("resolved interview session: sessionId=%s, user=%s, status=%s",
		session.SessionID, session.UserID, session.Status)

	return &session, nil
}

// UpdateSession sets a subset of columns on an existing session row.
func (s *postgresStore) UpdateSession(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	updates := map[string]interface{}{
		"updated_date": time.Now(),
	}
	for column, value := range fields {
		if !updatableSessionColumns[column] {
			return fmt.Errorf("column %q is not updatable on interview session", column)
		}
		updates[column] = value
	}

	db := s.postgres.DB(ctx)
	result := db.Model(&internal_entity.InterviewSession{}).
		Where("session_id = ?", sessionID).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update interview session %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("interview session not found: %s", sessionID)
	}

	s.logger.Debugf("updated interview session: sessionId=%s, fields=%v", sessionID, fields)
	return nil
}

// SaveAnswer appends one finalised answer.
func (s *postgresStore) SaveAnswer(ctx context.Context, answer *internal_entity.InterviewAnswer) error {
	db := s.postgres.DB(ctx)
	if err := db.Create(answer).Error; err != nil {
		return fmt.Errorf("failed to save answer for session %s question %d: %w",
			answer.SessionID, answer.QuestionIndex, err)
	}

	s.logger.Debugf("saved answer: sessionId=%s, question=%d, chars=%d",
		answer.SessionID, answer.QuestionIndex, len(answer.Answer))
	return nil
}

// GetAnswers returns all answers for a session ordered by question index.
func (s *postgresStore) GetAnswers(ctx context.Context, sessionID string) ([]*internal_entity.InterviewAnswer, error) {
	db := s.postgres.DB(ctx)
	var answers []*internal_entity.InterviewAnswer
	if err := db.Where("session_id = ?", sessionID).
		Order("question_index ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to load answers for session %s: %w", sessionID, err)
	}
	return answers, nil
}

// Complete marks a session completed. Called when the final answer is recorded.
func (s *postgresStore) Complete(ctx context.Context, sessionID string) error {
	db := s.postgres.DB(ctx)
	result := db.Model(&internal_entity.InterviewSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":       internal_entity.StatusCompleted,
			"updated_date": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to complete interview session %s: %w", sessionID, result.Error)
	}

	s.logger.Debugf("completed interview session: sessionId=%s", sessionID)
	return nil
}
