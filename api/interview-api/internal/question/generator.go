// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_question

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/configs"
)

const (
	// DefaultGenerationModel is used when no generation model is configured.
	DefaultGenerationModel = "gpt-4o-mini"

	// FallbackQuestion pads the bank when the provider returns fewer
	// questions than requested.
	FallbackQuestion = "Tell me more about your experience relevant to this role."

	systemPrompt = "You are an experienced technical interviewer. " +
		"Generate concise spoken-style interview questions, one per line, numbered. " +
		"Do not include anything except the questions."
)

// Generator produces the ordered question bank for one interview.
type Generator interface {
	// Generate returns exactly count questions for the given job
	// description, padding with a generic fallback when the provider
	// returns fewer.
	Generate(ctx context.Context, jobDescription string, count int) ([]string, error)
}

type openaiGenerator struct {
	logger commons.Logger
	client openai.Client
	model  string
}

// NewOpenAIGenerator creates a Generator backed by the chat-completion API.
func NewOpenAIGenerator(logger commons.Logger, cfg configs.OpenAIConfig) (Generator, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("illegal openai config: missing key")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGenerationModel
	}
	return &openaiGenerator{
		logger: logger,
		client: openai.NewClient(option.WithAPIKey(cfg.Key)),
		model:  model,
	}, nil
}

func (g *openaiGenerator) Generate(ctx context.Context, jobDescription string, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("illegal question count %d", count)
	}

	start := time.Now()
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf(
				"Generate %d interview questions for a candidate applying to the following role:\n\n%s",
				count, jobDescription)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}
	g.logger.Benchmark("question.generate", time.Since(start))

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("question generation returned no choices")
	}

	questions := ParseQuestionList(completion.Choices[0].Message.Content, count)
	g.logger.Infow("generated question bank", "requested", count, "parsed", len(questions))
	return questions, nil
}

// ParseQuestionList extracts question lines from model output and normalizes
// the result to exactly count entries: extras are truncated, shortfalls are
// padded with FallbackQuestion.
func ParseQuestionList(content string, count int) []string {
	questions := make([]string, 0, count)
	for _, line := range strings.Split(content, "\n") {
		question := stripListMarker(strings.TrimSpace(line))
		if question == "" {
			continue
		}
		questions = append(questions, question)
		if len(questions) == count {
			break
		}
	}
	for len(questions) < count {
		questions = append(questions, FallbackQuestion)
	}
	return questions
}

// stripListMarker removes leading numbering ("3.", "3)") or bullet markers
// from one line.
func stripListMarker(line string) string {
	trimmed := strings.TrimLeft(line, "0123456789")
	if trimmed != line {
		trimmed = strings.TrimPrefix(trimmed, ".")
		trimmed = strings.TrimPrefix(trimmed, ")")
		return strings.TrimSpace(trimmed)
	}
	trimmed = strings.TrimPrefix(line, "- ")
	trimmed = strings.TrimPrefix(trimmed, "* ")
	return strings.TrimSpace(trimmed)
}
