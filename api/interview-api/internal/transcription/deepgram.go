// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcription

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/configs"
)

const (
	DefaultModel      = "nova-2"
	DefaultLanguage   = "en-US"
	DefaultEncoding   = "linear16"
	DefaultSampleRate = 16000
	DefaultEndpoint   = "wss://api.deepgram.com/v1/listen"
)

// deepgramOption is the configuration structure for the Deepgram listen API.
type deepgramOption struct {
	logger commons.Logger
	cfg    configs.DeepgramConfig
}

func newDeepgramOption(logger commons.Logger, cfg configs.DeepgramConfig) (*deepgramOption, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("illegal deepgram config: missing key")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &deepgramOption{logger: logger, cfg: cfg}, nil
}

func (o *deepgramOption) GetKey() string {
	return o.cfg.Key
}

func (o *deepgramOption) GetEncoding() string {
	return DefaultEncoding
}

// GetSpeechToTextConnectionString builds the wss listen URL for one stream.
// utterance_end_ms requires interim results on the wire, so interim delivery
// to the provider is always enabled; interim delivery to the listener is
// gated separately by StreamConfig.InterimResults.
func (o *deepgramOption) GetSpeechToTextConnectionString(stream StreamConfig) string {
	params := url.Values{}
	params.Add("model", o.cfg.Model)
	params.Add("encoding", o.GetEncoding())
	params.Add("sample_rate", strconv.Itoa(DefaultSampleRate))
	params.Add("channels", "1")
	params.Add("interim_results", "true")
	params.Add("smart_format", "true")
	params.Add("punctuate", "true")
	params.Add("vad_events", "true")

	language := stream.Language
	if language == "" {
		language = o.cfg.Language
	}
	if language == "" {
		language = DefaultLanguage
	}
	params.Add("language", language)

	silence := stream.SilenceThreshold
	if silence <= 0 {
		if o.cfg.UtteranceEndMs > 0 {
			silence = time.Duration(o.cfg.UtteranceEndMs) * time.Millisecond
		} else {
			silence = DefaultSilenceThreshold
		}
	}
	params.Add("utterance_end_ms", strconv.FormatInt(silence.Milliseconds(), 10))

	return fmt.Sprintf("%s?%s", o.cfg.Endpoint, params.Encode())
}
