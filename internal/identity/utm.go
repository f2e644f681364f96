// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package identity

import "net/url"

// utmKeys are the campaign query parameters lifted into a structured
// sub-object on view events.
var utmKeys = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
}

// ExtractUTM pulls utm_* query parameters out of rawURL. A URL without
// UTM parameters (or an unparseable URL) yields nil, never an error.
func ExtractUTM(rawURL string) map[string]string {
	if rawURL == "" {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	query := u.Query()
	var utm map[string]string
	for _, key := range utmKeys {
		if v := query.Get(key); v != "" {
			if utm == nil {
				utm = make(map[string]string, len(utmKeys))
			}
			utm[key] = v
		}
	}
	return utm
}
