// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/configs"
	"github.com/rapidaai/interview-api/pkg/utils"
)

// KeepAliveInterval is how often the bridge pings the provider while the
// connection reports itself open.
const KeepAliveInterval = 5 * time.Second

const handshakeTimeout = 30 * time.Second

// ============================================================================
// Listen wire messages
// ============================================================================

// listenEnvelope carries only the discriminator; the payload shape differs
// per message type ("channel" is an object on Results and an array on
// UtteranceEnd), so decoding happens in two steps.
type listenEnvelope struct {
	Type string `json:"type"`
}

type listenResults struct {
	IsFinal     bool `json:"is_final"`
	SpeechFinal bool `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type listenError struct {
	Description string `json:"description"`
	Message     string `json:"message"`
}

type listenControl struct {
	Type string `json:"type"`
}

// ============================================================================
// Transcriber
// ============================================================================

type deepgramTranscriber struct {
	logger commons.Logger
	option *deepgramOption

	// keepAlive overrides KeepAliveInterval; used by tests.
	keepAlive time.Duration
}

// NewDeepgramTranscriber creates a Transcriber speaking the Deepgram listen
// protocol.
func NewDeepgramTranscriber(logger commons.Logger, cfg configs.DeepgramConfig) (Transcriber, error) {
	option, err := newDeepgramOption(logger, cfg)
	if err != nil {
		return nil, err
	}
	return &deepgramTranscriber{logger: logger, option: option}, nil
}

// Open dials the provider and starts the read and keep-alive loops.
func (t *deepgramTranscriber) Open(ctx context.Context, cfg StreamConfig, listener Listener) (Handle, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Token "+t.option.GetKey())

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, t.option.GetSpeechToTextConnectionString(cfg), headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to transcription provider: %w", err)
	}

	keepAlive := t.keepAlive
	if keepAlive <= 0 {
		keepAlive = KeepAliveInterval
	}

	b := &bridge{
		logger:    t.logger,
		conn:      conn,
		listener:  listener,
		interim:   cfg.InterimResults,
		keepAlive: keepAlive,
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
	}

	utils.Go(t.logger, b.runReadLoop)
	utils.Go(t.logger, b.runKeepAlive)

	return b, nil
}

// ============================================================================
// Bridge
// ============================================================================

// bridge is one live streaming-transcription connection. Events are delivered
// on the read-loop goroutine; Close waits for that goroutine to exit, so no
// events are delivered after Close returns. Close must therefore not be
// called from inside a Listener callback.
type bridge struct {
	logger    commons.Logger
	conn      *websocket.Conn
	listener  Listener
	interim   bool
	keepAlive time.Duration

	writeMu sync.Mutex // serialises all writes to the socket

	stateMu sync.Mutex
	closed  bool

	done chan struct{} // closed when the read loop exits
	stop chan struct{} // closed once by Close to stop the keep-alive loop
}

// Send forwards raw audio bytes to the provider.
func (b *bridge) Send(audio []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.isClosed() {
		return ErrChannelClosed
	}
	if err := b.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to forward audio: %w", err)
	}
	return nil
}

// IsOpen reports whether the connection is still usable: not closed by the
// owner and the read loop still running.
func (b *bridge) IsOpen() bool {
	if b.isClosed() {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

// Close stops the keep-alive loop, tears the socket down and waits for the
// read loop to exit. Idempotent.
func (b *bridge) Close() error {
	b.stateMu.Lock()
	if b.closed {
		b.stateMu.Unlock()
		return nil
	}
	b.closed = true
	b.stateMu.Unlock()

	close(b.stop)

	// Best-effort stream close so the provider flushes any pending finals on
	// its side; the socket goes away right after regardless.
	b.writeControl(listenControl{Type: "CloseStream"})
	b.conn.Close()

	<-b.done
	return nil
}

func (b *bridge) isClosed() bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.closed
}

func (b *bridge) writeControl(msg listenControl) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		b.logger.Debugf("failed to write %s control message: %v", msg.Type, err)
	}
}

// runKeepAlive pings the provider every KeepAliveInterval so it does not
// drop the stream during long silences. Stops immediately on Close.
func (b *bridge) runKeepAlive() {
	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-b.done:
			return
		case <-ticker.C:
			if b.isClosed() {
				return
			}
			b.writeControl(listenControl{Type: "KeepAlive"})
		}
	}
}

// runReadLoop reads provider messages until the socket dies. A read error on
// a connection the owner did not close is reported through the listener; the
// bridge does not reopen itself — the owning session decides.
func (b *bridge) runReadLoop() {
	defer close(b.done)

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			if b.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			b.dispatchError(fmt.Errorf("transcription stream read failed: %w", err))
			return
		}
		b.handleMessage(data)
	}
}

func (b *bridge) handleMessage(data []byte) {
	var envelope listenEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		b.logger.Debugf("unparseable transcription message: %v", err)
		return
	}

	switch envelope.Type {
	case "Results":
		var results listenResults
		if err := json.Unmarshal(data, &results); err != nil {
			b.logger.Debugf("unparseable results message: %v", err)
			return
		}
		b.handleResults(&results)

	case "UtteranceEnd":
		b.dispatch(func(l Listener) { l.OnEndOfTurn() })

	case "SpeechStarted", "Metadata":
		// informational only

	case "Error":
		var provErr listenError
		if err := json.Unmarshal(data, &provErr); err != nil {
			b.logger.Debugf("unparseable error message: %v", err)
			return
		}
		b.dispatchError(fmt.Errorf("transcription provider error: %s %s", provErr.Message, provErr.Description))

	default:
		b.logger.Debugf("unknown transcription message type %q, skipping", envelope.Type)
	}
}

func (b *bridge) handleResults(results *listenResults) {
	if len(results.Channel.Alternatives) == 0 {
		return
	}
	transcript := results.Channel.Alternatives[0].Transcript

	if transcript != "" {
		if results.IsFinal {
			b.dispatch(func(l Listener) { l.OnFinalTranscript(transcript) })
		} else if b.interim {
			b.dispatch(func(l Listener) { l.OnInterimTranscript(transcript) })
		}
	}

	// speech_final doubles as an end-of-turn signal: the provider saw a full
	// utterance followed by silence. The turn guard deduplicates against the
	// UtteranceEnd that may follow.
	if results.SpeechFinal {
		b.dispatch(func(l Listener) { l.OnEndOfTurn() })
	}
}

func (b *bridge) dispatch(deliver func(Listener)) {
	if b.isClosed() {
		return
	}
	deliver(b.listener)
}

func (b *bridge) dispatchError(err error) {
	b.dispatch(func(l Listener) { l.OnError(err) })
}
