// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across placecore.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	DispatchKindKey     = "dispatch.kind"
	DispatchAttemptKey  = "dispatch.attempt"
	DispatchRetryKey    = "dispatch.retry"
	DispatchExtendedKey = "dispatch.extended"
	DispatchReasonKey   = "dispatch.reason"

	SessionPresentKey  = "session.present"
	SessionAccessorKey = "session.accessor"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// AttemptAttributes describes a single dispatcher attempt.
func AttemptAttributes(kind string, attempt int, extended bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DispatchKindKey, kind),
		attribute.Int(DispatchAttemptKey, attempt),
		attribute.Bool(DispatchRetryKey, attempt > 1),
		attribute.Bool(DispatchExtendedKey, extended),
	}
}

// SessionAttributes records which session accessor was used and whether an id was attached.
func SessionAttributes(accessor string, present bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionAccessorKey, accessor),
		attribute.Bool(SessionPresentKey, present),
	}
}

// ErrorAttributes marks a span as failed with a classification. reason is
// omitted when empty.
func ErrorAttributes(errorType, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(DispatchReasonKey, reason))
	}
	return attrs
}
