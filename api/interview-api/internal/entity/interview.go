// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_entity

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Interview session status constants.
const (
	StatusPending   = "pending"   // Created, question bank generated, media not yet flowing
	StatusActive    = "active"    // Candidate is answering questions
	StatusCompleted = "completed" // All questions answered
	StatusAbandoned = "abandoned" // Connection dropped before completion
)

// InterviewSession is the persisted record of one candidate interview.
// The live turn state (guard flags, transcript buffer, bridge handle) lives in
// the in-memory session registry; this row is the durable shadow used for
// history queries and resume.
type InterviewSession struct {
	Id              uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID       string    `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex"`
	UserID          string    `json:"userId" gorm:"column:user_id;type:varchar(64);not null;index"`
	Status          string    `json:"status" gorm:"column:status;type:varchar(20);not null;default:pending"`
	JobDescription  string    `json:"jobDescription" gorm:"column:job_description;type:text;not null;default:''"`
	TotalQuestions  int       `json:"totalQuestions" gorm:"column:total_questions;type:int;not null"`
	CurrentQuestion int       `json:"currentQuestion" gorm:"column:current_question;type:int;not null;default:1"`
	QuestionBank    string    `json:"-" gorm:"column:question_bank;type:text;not null;default:''"`
	CreatedDate     time.Time `json:"createdDate" gorm:"type:timestamp;not null;<-:create"`
	UpdatedDate     time.Time `json:"updatedDate" gorm:"type:timestamp;default:null"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

func (s *InterviewSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.CreatedDate.IsZero() {
		s.CreatedDate = time.Now()
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	return nil
}

// IsCompleted reports whether the interview finished all questions.
func (s *InterviewSession) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// SetQuestionBank serialises the ordered question list onto the row.
func (s *InterviewSession) SetQuestionBank(questions []string) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to serialise question bank: %w", err)
	}
	s.QuestionBank = string(raw)
	return nil
}

// GetQuestionBank deserialises the ordered question list from the row.
func (s *InterviewSession) GetQuestionBank() ([]string, error) {
	if s.QuestionBank == "" {
		return nil, nil
	}
	var questions []string
	if err := json.Unmarshal([]byte(s.QuestionBank), &questions); err != nil {
		return nil, fmt.Errorf("failed to deserialise question bank: %w", err)
	}
	return questions, nil
}

// InterviewAnswer is one finalised candidate answer for one question.
type InterviewAnswer struct {
	Id            uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID     string    `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;index"`
	QuestionIndex int       `json:"questionIndex" gorm:"column:question_index;type:int;not null"`
	Question      string    `json:"question" gorm:"column:question;type:text;not null"`
	Answer        string    `json:"answer" gorm:"column:answer;type:text;not null"`
	CreatedDate   time.Time `json:"createdDate" gorm:"type:timestamp;not null;<-:create"`
}

func (InterviewAnswer) TableName() string {
	return "interview_answers"
}

func (a *InterviewAnswer) BeforeCreate(tx *gorm.DB) (err error) {
	if a.CreatedDate.IsZero() {
		a.CreatedDate = time.Now()
	}
	return nil
}
