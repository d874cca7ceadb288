// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetHistory serves the interview transcript over plain HTTP, for clients
// that come back after the websocket is gone.
//
// @Router /v1/interview/:sessionId/history [get]
// @Summary Interview question and answer history
// @Param sessionId path string true "Session ID"
// @Produce json
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H
func (i *InterviewApi) GetHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}

	session, err := i.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interview session not found"})
		return
	}
	answers, err := i.store.GetAnswers(c.Request.Context(), sessionID)
	if err != nil {
		i.logger.Errorw("failed to load interview history", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load interview history"})
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

	c.JSON(http.StatusOK, gin.H{
		"sessionId":       session.SessionID,
		"userId":          session.UserID,
		"status":          session.Status,
		"totalQuestions":  session.TotalQuestions,
		"currentQuestion": session.CurrentQuestion,
		"content":         content,
	})
}
