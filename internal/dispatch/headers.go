// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

const (
	HeaderProtocolVersion = "X-Protocol-Version"
	HeaderPlatform        = "X-Platform"
	HeaderPlatformVersion = "X-Platform-Version"
	HeaderSDKVersion      = "X-SDK-Version"
	HeaderSessionID       = "X-Session-Id"
	// HeaderSessionDuration carries a server-issued session duration in
	// seconds on layout responses.
	HeaderSessionDuration = "X-Session-Duration"
	HeaderRequestID       = "X-Request-ID"
	HeaderAcceptLanguage  = "Accept-Language"
)

// HeaderConfig holds the identifiers sent with every request.
type HeaderConfig struct {
	ProtocolVersion string
	Platform        string
	PlatformVersion string
	SDKVersion      string
	// Locale is a BCP 47 tag; it is canonicalised before use.
	Locale string
}

// CanonicalLocale parses a BCP 47 tag, accepting underscores. It returns ""
// for unparsable input.
func CanonicalLocale(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	return tag.String()
}

// sharedHeaders builds the header set common to all attempts of a request.
// Caller supplied headers win over shared ones.
func (h HeaderConfig) sharedHeaders(locale, requestID, sessionID string, extra http.Header) http.Header {
	out := make(http.Header)
	setIf := func(k, v string) {
		if v != "" {
			out.Set(k, v)
		}
	}
	setIf(HeaderProtocolVersion, h.ProtocolVersion)
	setIf(HeaderPlatform, h.Platform)
	setIf(HeaderPlatformVersion, h.PlatformVersion)
	setIf(HeaderSDKVersion, h.SDKVersion)
	setIf(HeaderAcceptLanguage, locale)
	setIf(HeaderRequestID, requestID)
	setIf(HeaderSessionID, sessionID)
	out.Set("Accept", "application/json")
	for k, vs := range extra {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return out
}
