// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/interview-api/pkg/configs"
)

// ============================================================================
// Test doubles
// ============================================================================

type recordedEvent struct {
	kind string // "interim", "final", "end", "error"
	text string
}

// recordingListener captures bridge events in delivery order.
type recordingListener struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingListener) record(kind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: kind, text: text})
}

func (r *recordingListener) OnInterimTranscript(text string) { r.record("interim", text) }
func (r *recordingListener) OnFinalTranscript(text string)   { r.record("final", text) }
func (r *recordingListener) OnEndOfTurn()                    { r.record("end", "") }
func (r *recordingListener) OnError(err error)               { r.record("error", err.Error()) }

func (r *recordingListener) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingListener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// listenServer is an in-process stand-in for the provider's listen endpoint.
type listenServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	connCh    chan *websocket.Conn
	binaryCh  chan []byte
	controlCh chan string
	authCh    chan string
}

func newListenServer(t *testing.T) *listenServer {
	t.Helper()
	ls := &listenServer{
		connCh:    make(chan *websocket.Conn, 1),
		binaryCh:  make(chan []byte, 16),
		controlCh: make(chan string, 16),
		authCh:    make(chan string, 1),
	}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ls.authCh <- r.Header.Get("Authorization")
		conn, err := ls.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ls.connCh <- conn
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch messageType {
			case websocket.BinaryMessage:
				ls.binaryCh <- data
			case websocket.TextMessage:
				var control listenControl
				if json.Unmarshal(data, &control) == nil {
					ls.controlCh <- control.Type
				}
			}
		}
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *listenServer) endpoint() string {
	return "ws" + strings.TrimPrefix(ls.srv.URL, "http")
}

func (ls *listenServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ls.connCh:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("provider never accepted the connection")
		return nil
	}
}

func (ls *listenServer) push(t *testing.T, conn *websocket.Conn, message string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(message)))
}

func openTestBridge(t *testing.T, ls *listenServer, stream StreamConfig, listener Listener) Handle {
	t.Helper()
	transcriber, err := NewDeepgramTranscriber(newTestLogger(t), configs.DeepgramConfig{
		Key:      "test-key",
		Endpoint: ls.endpoint(),
	})
	require.NoError(t, err)

	handle, err := transcriber.Open(context.Background(), stream, listener)
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })
	return handle
}

func resultsMessage(transcript string, isFinal, speechFinal bool) string {
	return `{"type":"Results","is_final":` + boolJSON(isFinal) +
		`,"speech_final":` + boolJSON(speechFinal) +
		`,"channel":{"alternatives":[{"transcript":"` + transcript + `","confidence":0.98}]}}`
}

func boolJSON(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ============================================================================
// Open and Send
// ============================================================================

func TestBridgeOpen_SendsAuthorizationHeader(t *testing.T) {
	ls := newListenServer(t)
	openTestBridge(t, ls, StreamConfig{}, &recordingListener{})

	select {
	case auth := <-ls.authCh:
		assert.Equal(t, "Token test-key", auth)
	case <-time.After(2 * time.Second):
		t.Fatal("handshake never reached the provider")
	}
}

func TestBridgeOpen_DialFailure(t *testing.T) {
	transcriber, err := NewDeepgramTranscriber(newTestLogger(t), configs.DeepgramConfig{
		Key:      "test-key",
		Endpoint: "ws://127.0.0.1:1/v1/listen",
	})
	require.NoError(t, err)

	handle, err := transcriber.Open(context.Background(), StreamConfig{}, &recordingListener{})
	assert.Error(t, err)
	assert.Nil(t, handle)
	assert.Contains(t, err.Error(), "failed to connect to transcription provider")
}

func TestBridgeSend_ForwardsBinaryAudio(t *testing.T) {
	ls := newListenServer(t)
	handle := openTestBridge(t, ls, StreamConfig{}, &recordingListener{})
	ls.conn(t)

	audio := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, handle.Send(audio))

	select {
	case received := <-ls.binaryCh:
		assert.Equal(t, audio, received)
	case <-time.After(2 * time.Second):
		t.Fatal("audio never reached the provider")
	}
}

// ============================================================================
// Event delivery
// ============================================================================

func TestBridge_DeliversTranscriptEventsInOrder(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	openTestBridge(t, ls, StreamConfig{InterimResults: true}, listener)
	conn := ls.conn(t)

	ls.push(t, conn, resultsMessage("tell me about", false, false))
	ls.push(t, conn, resultsMessage("tell me about yourself", true, false))
	ls.push(t, conn, `{"type":"UtteranceEnd","channel":[0,1],"last_word_end":3.1}`)

	require.Eventually(t, func() bool { return listener.count() >= 3 }, 2*time.Second, 10*time.Millisecond)

	events := listener.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, recordedEvent{kind: "interim", text: "tell me about"}, events[0])
	assert.Equal(t, recordedEvent{kind: "final", text: "tell me about yourself"}, events[1])
	assert.Equal(t, recordedEvent{kind: "end"}, events[2])
}

func TestBridge_SuppressesInterimsWhenDisabled(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	openTestBridge(t, ls, StreamConfig{InterimResults: false}, listener)
	conn := ls.conn(t)

	ls.push(t, conn, resultsMessage("partial", false, false))
	ls.push(t, conn, resultsMessage("complete answer", true, false))

	require.Eventually(t, func() bool { return listener.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	events := listener.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, recordedEvent{kind: "final", text: "complete answer"}, events[0])
}

func TestBridge_SpeechFinalSignalsEndOfTurn(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	openTestBridge(t, ls, StreamConfig{}, listener)
	conn := ls.conn(t)

	ls.push(t, conn, resultsMessage("done talking", true, true))

	require.Eventually(t, func() bool { return listener.count() >= 2 }, 2*time.Second, 10*time.Millisecond)

	events := listener.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, recordedEvent{kind: "final", text: "done talking"}, events[0])
	assert.Equal(t, recordedEvent{kind: "end"}, events[1])
}

func TestBridge_DropsEmptyTranscripts(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	openTestBridge(t, ls, StreamConfig{InterimResults: true}, listener)
	conn := ls.conn(t)

	ls.push(t, conn, resultsMessage("", false, false))
	ls.push(t, conn, resultsMessage("real words", true, false))

	require.Eventually(t, func() bool { return listener.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	events := listener.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "real words", events[0].text)
}

func TestBridge_IgnoresInformationalMessages(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	openTestBridge(t, ls, StreamConfig{}, listener)
	conn := ls.conn(t)

	ls.push(t, conn, `{"type":"SpeechStarted","timestamp":0.4}`)
	ls.push(t, conn, `{"type":"Metadata","request_id":"abc"}`)
	ls.push(t, conn, resultsMessage("after metadata", true, false))

	require.Eventually(t, func() bool { return listener.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	events := listener.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, recordedEvent{kind: "final", text: "after metadata"}, events[0])
}

func TestBridge_ReportsProviderError(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	openTestBridge(t, ls, StreamConfig{}, listener)
	conn := ls.conn(t)

	ls.push(t, conn, `{"type":"Error","message":"DATA-0000","description":"unsupported encoding"}`)

	require.Eventually(t, func() bool { return listener.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	events := listener.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].kind)
	assert.Contains(t, events[0].text, "unsupported encoding")
}

func TestBridge_ReportsAbnormalDisconnect(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	handle := openTestBridge(t, ls, StreamConfig{}, listener)
	conn := ls.conn(t)

	// Hard close without a close frame looks like a network failure.
	require.NoError(t, conn.UnderlyingConn().Close())

	require.Eventually(t, func() bool { return listener.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	events := listener.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].kind)

	require.Eventually(t, func() bool { return !handle.IsOpen() }, 2*time.Second, 10*time.Millisecond)
}

// ============================================================================
// Keep-alive
// ============================================================================

func TestBridge_SendsKeepAlives(t *testing.T) {
	ls := newListenServer(t)
	transcriber, err := NewDeepgramTranscriber(newTestLogger(t), configs.DeepgramConfig{
		Key:      "test-key",
		Endpoint: ls.endpoint(),
	})
	require.NoError(t, err)
	transcriber.(*deepgramTranscriber).keepAlive = 20 * time.Millisecond

	handle, err := transcriber.Open(context.Background(), StreamConfig{}, &recordingListener{})
	require.NoError(t, err)
	defer handle.Close()
	ls.conn(t)

	select {
	case control := <-ls.controlCh:
		assert.Equal(t, "KeepAlive", control)
	case <-time.After(2 * time.Second):
		t.Fatal("no keep-alive arrived")
	}
}

// ============================================================================
// Close semantics
// ============================================================================

func TestBridgeClose_SendsCloseStream(t *testing.T) {
	ls := newListenServer(t)
	handle := openTestBridge(t, ls, StreamConfig{}, &recordingListener{})
	ls.conn(t)

	require.NoError(t, handle.Close())

	select {
	case control := <-ls.controlCh:
		assert.Equal(t, "CloseStream", control)
	case <-time.After(2 * time.Second):
		t.Fatal("no CloseStream arrived")
	}
}

func TestBridgeClose_Idempotent(t *testing.T) {
	ls := newListenServer(t)
	handle := openTestBridge(t, ls, StreamConfig{}, &recordingListener{})
	ls.conn(t)

	require.NoError(t, handle.Close())
	require.NoError(t, handle.Close())
}

func TestBridgeSend_AfterClose(t *testing.T) {
	ls := newListenServer(t)
	handle := openTestBridge(t, ls, StreamConfig{}, &recordingListener{})
	ls.conn(t)

	require.NoError(t, handle.Close())
	assert.False(t, handle.IsOpen())
	assert.ErrorIs(t, handle.Send([]byte{0x01}), ErrChannelClosed)
}

func TestBridgeClose_NoEventsAfterReturn(t *testing.T) {
	ls := newListenServer(t)
	listener := &recordingListener{}
	handle := openTestBridge(t, ls, StreamConfig{}, listener)
	conn := ls.conn(t)

	ls.push(t, conn, resultsMessage("before close", true, false))
	require.Eventually(t, func() bool { return listener.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, handle.Close())
	delivered := listener.count()

	// Anything still in flight server-side must be dropped, not delivered.
	conn.WriteMessage(websocket.TextMessage, []byte(resultsMessage("after close", true, false)))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, delivered, listener.count())
}
