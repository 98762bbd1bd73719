// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tmdb

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidEndpoint is returned when a caller supplies an absolute or
// otherwise unsafe endpoint path.
var ErrInvalidEndpoint = errors.New("endpoint must be a relative path")

// StatusError represents a non-2xx upstream response.
// It preserves the status code for transient-failure classification.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb request to %s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	_, ok := target.(*StatusError)
	return ok
}

// Transient reports whether the failure is worth retrying (5xx or 429).
func (e *StatusError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// isTransient classifies an error for retry purposes. Network-level
// failures retry; HTTP errors retry only for 5xx and 429.
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	// Anything else that made it out of the transport layer is a
	// network-level failure (refused/reset/timeout).
	return true
}
