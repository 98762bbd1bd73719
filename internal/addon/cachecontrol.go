// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package addon

import "fmt"

const (
	catalogMaxAgeSeconds = 1800
	catalogStaleSeconds  = 604800
	metaMaxAgeSeconds    = 86400
)

// CacheDirective tells the HTTP layer how a response may be cached.
// Randomized catalogs must never be cached or every refresh would return
// the same "random" page; manifests are revalidated on every request so
// catalog edits show up immediately.
type CacheDirective struct {
	NoStore         bool
	NoCache         bool
	MaxAgeSeconds   int
	StaleRevalidate int
}

// Header renders the directive as a Cache-Control value.
func (d CacheDirective) Header() string {
	if d.NoStore {
		return "no-store"
	}
	if d.NoCache {
		return "no-cache"
	}
	if d.StaleRevalidate > 0 {
		return fmt.Sprintf("max-age=%d, public, stale-while-revalidate=%d", d.MaxAgeSeconds, d.StaleRevalidate)
	}
	return fmt.Sprintf("max-age=%d, public", d.MaxAgeSeconds)
}

func noStoreDirective() CacheDirective {
	return CacheDirective{NoStore: true}
}

func catalogDirective() CacheDirective {
	return CacheDirective{MaxAgeSeconds: catalogMaxAgeSeconds, StaleRevalidate: catalogStaleSeconds}
}

func metaDirective() CacheDirective {
	return CacheDirective{MaxAgeSeconds: metaMaxAgeSeconds, StaleRevalidate: catalogStaleSeconds}
}

func manifestDirective() CacheDirective {
	return CacheDirective{NoCache: true}
}
