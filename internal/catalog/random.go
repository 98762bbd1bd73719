// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package catalog

import "math/rand"

// maxUpstreamPage is the deepest page the upstream will serve.
const maxUpstreamPage = 500

// ClampPages bounds a reported page count to what the upstream will
// actually serve.
func ClampPages(totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	if totalPages > maxUpstreamPage {
		return maxUpstreamPage
	}
	return totalPages
}

// RandomPage picks a uniformly random page within the clamped range.
func RandomPage(totalPages int) int {
	return rand.Intn(ClampPages(totalPages)) + 1
}

// Shuffle randomizes item order in place.
func Shuffle[T any](items []T) {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
