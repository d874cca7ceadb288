// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import (
	"runtime/debug"
	"strings"
)

// IsEmpty reports whether s is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Go runs fn on a new goroutine with panic recovery. A panicking background
// task must never take the process down with it.
func Go(logger interface {
	Errorw(msg string, keysAndValues ...interface{})
}, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("recovered from panic in background task",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
