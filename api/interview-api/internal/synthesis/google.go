// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_synthesis

import (
	"context"
	"fmt"
	"time"

	tts "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/configs"
)

const (
	DefaultLanguageCode = "en-US"
	DefaultVoice        = "en-US-Chirp-HD-F"
	DefaultSampleRate   = 16000
)

// googleOption is the configuration structure for the Google synthesis
// service.
type googleOption struct {
	logger       commons.Logger
	clientOptons []option.ClientOption
	voice        string
	languageCode string
}

func newGoogleOption(logger commons.Logger, cfg configs.GoogleTTSConfig) (*googleOption, error) {
	co := make([]option.ClientOption, 0)
	if cfg.Key != "" {
		co = append(co, option.WithAPIKey(cfg.Key))
	} else if cfg.ServiceAccountKey != "" {
		co = append(co, option.WithCredentialsJSON([]byte(cfg.ServiceAccountKey)))
	} else {
		return nil, fmt.Errorf("illegal google tts config: missing credentials")
	}

	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	languageCode := cfg.LanguageCode
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}

	return &googleOption{
		logger:       logger,
		clientOptons: co,
		voice:        voice,
		languageCode: languageCode,
	}, nil
}

// GetClientOptions returns all configured Google API client options.
func (gO *googleOption) GetClientOptions() []option.ClientOption {
	return gO.clientOptons
}

// TextToSpeechOptions generates the voice and audio configuration for one
// synthesis call. LINEAR16 at 16 kHz matches the transcription side so the
// client plays and records at one sample rate.
func (gO *googleOption) TextToSpeechOptions() (*texttospeechpb.VoiceSelectionParams, *texttospeechpb.AudioConfig) {
	return &texttospeechpb.VoiceSelectionParams{
			Name:         gO.voice,
			LanguageCode: gO.languageCode,
		}, &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: DefaultSampleRate,
		}
}

// GoogleSynthesizer speaks questions through the Google text-to-speech
// service.
type GoogleSynthesizer struct {
	logger commons.Logger
	option *googleOption
	client *tts.Client
}

// NewGoogleSynthesizer creates a Synthesizer backed by the Google
// text-to-speech service. Close releases the underlying client.
func NewGoogleSynthesizer(ctx context.Context, logger commons.Logger, cfg configs.GoogleTTSConfig) (*GoogleSynthesizer, error) {
	option, err := newGoogleOption(logger, cfg)
	if err != nil {
		return nil, err
	}
	client, err := tts.NewClient(ctx, option.GetClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis client: %w", err)
	}
	return &GoogleSynthesizer{logger: logger, option: option, client: client}, nil
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	voice, audioConfig := g.option.TextToSpeechOptions()

	start := time.Now()
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice:       voice,
		AudioConfig: audioConfig,
	})
	if err != nil {
		g.logger.Errorw("speech synthesis failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}
	g.logger.Benchmark("synthesis.speak", time.Since(start))

	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty audio", ErrSynthesisUnavailable)
	}
	return resp.GetAudioContent(), nil
}

func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}
