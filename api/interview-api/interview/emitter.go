// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidaai/interview-api/pkg/commons"
	"github.com/rapidaai/interview-api/pkg/utils"
)

const emitBufferSize = 64

type outboundEnvelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// emitter is the single outbound writer for one connection. All components
// funnel events through Emit; only the run loop touches the socket, so
// concurrent emits from bridge callbacks and the session worker never
// interleave on the wire.
type emitter struct {
	logger commons.Logger
	conn   *websocket.Conn

	events chan outboundEnvelope
	closed chan struct{}
	once   sync.Once
	done   chan struct{}
}

func newEmitter(logger commons.Logger, conn *websocket.Conn) *emitter {
	e := &emitter{
		logger: logger,
		conn:   conn,
		events: make(chan outboundEnvelope, emitBufferSize),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	utils.Go(logger, e.run)
	return e
}

// Emit queues one event for delivery. Events queued after Close are
// discarded silently; results of in-flight work must not reach a closed
// connection.
func (e *emitter) Emit(eventType string, data interface{}) {
	envelope := outboundEnvelope{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	select {
	case <-e.closed:
		return
	default:
	}
	select {
	case e.events <- envelope:
	case <-e.closed:
	}
}

// EmitError is shorthand for an interview_error event.
func (e *emitter) EmitError(kind, message string) {
	e.Emit(EventInterviewError, errorPayload{Kind: kind, Error: message})
}

// Close stops delivery. Pending and future events are dropped; the socket
// itself is owned and closed by the connection's read loop.
func (e *emitter) Close() {
	e.once.Do(func() {
		close(e.closed)
		<-e.done
	})
}

func (e *emitter) run() {
	defer close(e.done)
	for {
		select {
		case envelope := <-e.events:
			if err := e.conn.WriteJSON(envelope); err != nil {
				e.logger.Debugf("failed to deliver %s event: %v", envelope.Type, err)
			}
		case <-e.closed:
			return
		}
	}
}
