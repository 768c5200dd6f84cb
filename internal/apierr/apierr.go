// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package apierr defines the relay's uniform HTTP error envelope and the
// fixed set of error kinds every handler maps onto.
package apierr

import (
	"encoding/json"
	"net/http"
)

// Kind is one of the relay's distinct HTTP-mapped error classes.
type Kind int

const (
	// KindInternal covers anything unexpected; the response body never
	// leaks internals, details go to the log only.
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthenticated
	KindNotFound
	KindConflict // reserved: current design upserts instead of conflicting
	KindGone
	KindRateLimited
)

var statusByKind = map[Kind]int{
	KindInternal:        http.StatusInternalServerError,
	KindInvalidInput:    http.StatusBadRequest,
	KindUnauthenticated: http.StatusUnauthorized,
	KindNotFound:        http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindGone:            http.StatusGone,
	KindRateLimited:     http.StatusTooManyRequests,
}

// Error is the error type every API-facing layer should return up the
// call stack; handlers translate it directly into the wire envelope.
type Error struct {
	Kind    Kind
	Message string
	// cause is logged but never rendered to the caller.
	cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error of the given kind with a caller-visible message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind whose message is shown to the
// caller while cause is preserved for logging via errors.Unwrap.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Internal wraps an unexpected error behind the fixed 500 message; the
// real cause is the caller's responsibility to log before returning.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// envelope is the wire shape of every non-2xx API response.
type envelope struct {
	Error string `json:"error"`
}

// WriteJSON writes err's uniform {error} envelope at its mapped status.
// Any error not already an *Error is treated as an opaque 500.
func WriteJSON(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = Internal(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status())
	_ = json.NewEncoder(w).Encode(envelope{Error: apiErr.Message})
}

// WriteThrottled writes the fixed 429 envelope used by the front door's
// per-key throttle, which has no underlying *Error to carry.
func WriteThrottled(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(envelope{Error: "Too many requests"})
}
