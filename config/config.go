// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/rapidaai/interview-api/pkg/configs"
)

// AppConfig is the application config structure.
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	PostgresConfig configs.PostgresConfig `mapstructure:"postgres" validate:"required"`

	DeepgramConfig  configs.DeepgramConfig  `mapstructure:"deepgram" validate:"required"`
	OpenAIConfig    configs.OpenAIConfig    `mapstructure:"openai" validate:"required"`
	GoogleTTSConfig configs.GoogleTTSConfig `mapstructure:"google_tts" validate:"required"`

	// DefaultQuestionCount applies when start_interview omits totalQuestions.
	DefaultQuestionCount int `mapstructure:"default_question_count" validate:"required"`
}

// InitConfig reads the .env config and initialises viper for the application.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "interview-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("DEFAULT_QUESTION_COUNT", 5)

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "<>")
	v.SetDefault("POSTGRES__AUTH__USER", "<>")
	v.SetDefault("POSTGRES__AUTH__PASSWORD", "<>")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("POSTGRES__SSL_MODE", "disable")

	v.SetDefault("DEEPGRAM__KEY", "")
	v.SetDefault("DEEPGRAM__ENDPOINT", "wss://api.deepgram.com/v1/listen")
	v.SetDefault("DEEPGRAM__MODEL", "nova-2")
	v.SetDefault("DEEPGRAM__LANGUAGE", "en-US")
	v.SetDefault("DEEPGRAM__UTTERANCE_END_MS", 2000)

	v.SetDefault("OPENAI__KEY", "")
	v.SetDefault("OPENAI__MODEL", "gpt-4o-mini")

	v.SetDefault("GOOGLE_TTS__KEY", "")
	v.SetDefault("GOOGLE_TTS__SERVICE_ACCOUNT_KEY", "")
	v.SetDefault("GOOGLE_TTS__VOICE", "en-US-Chirp-HD-F")
	v.SetDefault("GOOGLE_TTS__LANGUAGE_CODE", "en-US")
}

// GetApplicationConfig unmarshals and validates the application config.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
