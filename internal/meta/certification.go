// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package meta

import (
	"strings"

	"github.com/catalogarr/catalogarr/internal/tmdb"
)

// movieCertification finds the certification for a viewer country in the
// appended release dates, falling back to the reference country.
func movieCertification(releases tmdb.ReleaseDates, country string) string {
	if cert := movieCertificationIn(releases, country); cert != "" {
		return cert
	}
	if country != referenceCountry {
		return movieCertificationIn(releases, referenceCountry)
	}
	return ""
}

func movieCertificationIn(releases tmdb.ReleaseDates, country string) string {
	for _, entry := range releases.Results {
		if !strings.EqualFold(entry.CountryCode, country) {
			continue
		}
		for _, rd := range entry.ReleaseDates {
			if rd.Certification != "" {
				return rd.Certification
			}
		}
	}
	return ""
}

// seriesCertification does the same over TV content ratings.
func seriesCertification(ratings tmdb.ContentRatings, country string) string {
	lookup := func(cc string) string {
		for _, entry := range ratings.Results {
			if strings.EqualFold(entry.CountryCode, cc) && entry.Rating != "" {
				return entry.Rating
			}
		}
		return ""
	}

	if cert := lookup(country); cert != "" {
		return cert
	}
	if country != referenceCountry {
		return lookup(referenceCountry)
	}
	return ""
}

// certificationTranslations maps foreign rating labels to a widely
// understood equivalent. Best effort; unknown labels pass through as-is.
var certificationTranslations = map[string]map[string]string{
	"DE": {
		"0":  "G",
		"6":  "PG",
		"12": "PG-13",
		"16": "R",
		"18": "NC-17",
	},
	"FR": {
		"U":  "G",
		"10": "PG",
		"12": "PG-13",
		"16": "R",
		"18": "NC-17",
	},
	"BR": {
		"L":  "G",
		"10": "PG",
		"12": "PG-13",
		"14": "PG-13",
		"16": "R",
		"18": "NC-17",
	},
	"JP": {
		"G":    "G",
		"PG12": "PG-13",
		"R15+": "R",
		"R18+": "NC-17",
	},
}

// TranslateCertification normalizes a country-specific certification label.
// Labels without a known translation are returned unchanged.
func TranslateCertification(certification, country string) string {
	table, ok := certificationTranslations[strings.ToUpper(country)]
	if !ok {
		return certification
	}
	if translated, ok := table[strings.ToUpper(certification)]; ok {
		return translated
	}
	return certification
}
