// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"net/url"
	"strings"
)

const redactedValue = "********"

// RedactString returns a fixed placeholder for any non-empty secret value.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	return redactedValue
}

// IsRedactedString reports whether a value is the redaction placeholder.
func IsRedactedString(value string) bool {
	return value == redactedValue
}

// credential query parameter names stripped from logged URLs
var sensitiveParams = []string{"api_key", "apikey", "session_id"}

// RedactURLString replaces credential query parameters in a URL with the
// redaction placeholder so the URL is safe to log. Unparseable input is
// returned as-is with a best-effort string replacement.
func RedactURLString(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		for _, p := range sensitiveParams {
			if idx := strings.Index(raw, p+"="); idx >= 0 {
				end := strings.IndexByte(raw[idx:], '&')
				if end == -1 {
					raw = raw[:idx] + p + "=" + redactedValue
				} else {
					raw = raw[:idx] + p + "=" + redactedValue + raw[idx+end:]
				}
			}
		}
		return raw
	}

	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, redactedValue)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
