// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package configs

// DeepgramConfig configures the streaming transcription provider.
type DeepgramConfig struct {
	Key      string `mapstructure:"key" validate:"required"`
	Endpoint string `mapstructure:"endpoint" validate:"required"`
	Model    string `mapstructure:"model" validate:"required"`
	Language string `mapstructure:"language" validate:"required"`

	// UtteranceEndMs is the silence interval after which the provider emits
	// an end-of-turn signal.
	UtteranceEndMs int `mapstructure:"utterance_end_ms" validate:"required"`
}

// OpenAIConfig configures the question-generation provider.
type OpenAIConfig struct {
	Key   string `mapstructure:"key" validate:"required"`
	Model string `mapstructure:"model" validate:"required"`
}

// GoogleTTSConfig configures the speech-synthesis provider.
type GoogleTTSConfig struct {
	// Key is an API key; ServiceAccountKey is a JSON credential blob. Either
	// may be used, API key wins when both are set.
	Key               string `mapstructure:"key"`
	ServiceAccountKey string `mapstructure:"service_account_key"`
	Voice             string `mapstructure:"voice" validate:"required"`
	LanguageCode      string `mapstructure:"language_code" validate:"required"`
}
