// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

type Config struct {
	Version             string
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	BaseURL             string `mapstructure:"baseUrl"`
	SessionSecret       string `mapstructure:"sessionSecret"`
	LogLevel            string `mapstructure:"logLevel"`
	LogPath             string `mapstructure:"logPath"`
	LogMaxSize          int    `mapstructure:"logMaxSize"`
	LogMaxBackups       int    `mapstructure:"logMaxBackups"`
	DataDir             string `mapstructure:"dataDir"`
	PprofEnabled        bool   `mapstructure:"pprofEnabled"`
	AddonID             string `mapstructure:"addonId"`
	AddonName           string `mapstructure:"addonName"`
	AddonVersion        string `mapstructure:"addonVersion"`
	TMDBCacheTTLMinutes int    `mapstructure:"tmdbCacheTTLMinutes"`
	CacheCleanupMinutes int    `mapstructure:"cacheCleanupMinutes"`
}
