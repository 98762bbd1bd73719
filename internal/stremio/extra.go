// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stremio

import (
	"net/url"
	"strings"
)

// Extra holds the decoded optional catalog request parameters.
type Extra struct {
	Skip   int
	Search string
	Genre  string
}

// DecodeExtra parses a catalog extra path segment ("skip=20&genre=Action").
// Tokens are &-separated key=value pairs with percent-encoded values.
// Unknown keys and malformed tokens are ignored.
func DecodeExtra(segment string) Extra {
	var extra Extra

	segment = strings.TrimSuffix(segment, ".json")
	for _, token := range strings.Split(segment, "&") {
		key, value, found := strings.Cut(token, "=")
		if !found {
			continue
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			decoded = value
		}

		switch key {
		case "skip":
			extra.Skip = parseSkip(decoded)
		case "search":
			extra.Search = decoded
		case "genre":
			extra.Genre = decoded
		}
	}

	return extra
}

func parseSkip(value string) int {
	skip := 0
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0
		}
		skip = skip*10 + int(r-'0')
		if skip > 1_000_000 {
			return 0
		}
	}
	return skip
}
