// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package buildinfo

import "fmt"

// Set during build via ldflags.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var UserAgent = fmt.Sprintf("catalogarr/%s", Version)
