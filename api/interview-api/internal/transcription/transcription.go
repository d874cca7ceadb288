// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcription

import (
	"context"
	"errors"
	"time"
)

// DefaultSilenceThreshold is the audio-inactivity window after which the
// provider reports end-of-turn.
const DefaultSilenceThreshold = 2000 * time.Millisecond

// ErrChannelClosed is returned by Handle.Send after the bridge was closed.
var ErrChannelClosed = errors.New("transcription channel is closed")

// StreamConfig describes one streaming-transcription connection.
type StreamConfig struct {
	Language       string
	InterimResults bool

	// SilenceThreshold is the duration of audio inactivity after which the
	// provider emits an end-of-turn signal. Zero means DefaultSilenceThreshold.
	SilenceThreshold time.Duration
}

// Listener receives bridge events. Events are delivered on the bridge's read
// loop goroutine, in provider delivery order; implementations must not block
// for long.
type Listener interface {
	OnInterimTranscript(text string)
	OnFinalTranscript(text string)
	OnEndOfTurn()
	OnError(err error)
}

// Handle is one live transcription connection, exclusively owned by one
// session.
type Handle interface {
	// Send forwards raw audio bytes to the provider. Fails with
	// ErrChannelClosed after Close.
	Send(audio []byte) error

	// IsOpen reports whether the underlying connection is still usable.
	IsOpen() bool

	// Close tears the connection down. No events are delivered after Close
	// returns. Safe to call multiple times.
	Close() error
}

// Transcriber opens streaming-transcription connections.
type Transcriber interface {
	Open(ctx context.Context, cfg StreamConfig, listener Listener) (Handle, error)
}
