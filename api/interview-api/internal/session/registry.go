// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"errors"
	"sync"

	"github.com/rapidaai/interview-api/pkg/commons"
)

var (
	// ErrDuplicateSession is returned when a connection already owns a
	// session record.
	ErrDuplicateSession = errors.New("session already exists for connection")

	// ErrSessionNotFound is returned when no record exists for a connection.
	ErrSessionNotFound = errors.New("no session for connection")
)

// Registry is the concurrency-safe map from connection identifier to session
// record. The registry only serializes structural operations; record-internal
// state is owned by the session's worker.
type Registry struct {
	logger commons.Logger

	mu      sync.RWMutex
	records map[string]*Record
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger commons.Logger) *Registry {
	return &Registry{
		logger:  logger,
		records: make(map[string]*Record),
	}
}

// Create registers the record under its connection identifier. Fails with
// ErrDuplicateSession if the connection already owns one.
func (reg *Registry) Create(record *Record) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.records[record.ConnectionID]; exists {
		return ErrDuplicateSession
	}
	reg.records[record.ConnectionID] = record
	reg.logger.Debugf("registered session %s for connection %s", record.SessionID, record.ConnectionID)
	return nil
}

// Get returns the record for the connection, or ErrSessionNotFound.
func (reg *Registry) Get(connectionID string) (*Record, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	record, exists := reg.records[connectionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return record, nil
}

// Remove drops the connection's record and closes its transcription handle
// if still open. Idempotent.
func (reg *Registry) Remove(connectionID string) {
	reg.mu.Lock()
	record, exists := reg.records[connectionID]
	delete(reg.records, connectionID)
	reg.mu.Unlock()

	if !exists {
		return
	}
	if err := record.CloseHandle(); err != nil {
		reg.logger.Debugf("failed to close transcription handle for session %s: %v", record.SessionID, err)
	}
	reg.logger.Debugf("removed session %s for connection %s", record.SessionID, connectionID)
}

// Count returns the number of live sessions.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.records)
}
