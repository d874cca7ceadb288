// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_synthesis

import (
	"context"
	"errors"
)

// ErrSynthesisUnavailable is returned when the synthesis provider is
// unreachable or produced no audio. Callers treat this as a turn-processing
// error, not a fatal session error.
var ErrSynthesisUnavailable = errors.New("speech synthesis is unavailable")

// Synthesizer converts question text into a playable audio payload. Holds no
// per-session state; safe to invoke concurrently across sessions.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
