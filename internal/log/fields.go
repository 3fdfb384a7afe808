// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldRequestID     = "request_id"
	FieldOwnerTag      = "owner_tag"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldReason    = "reason"

	// Store fields
	FieldStore  = "store"
	FieldRecord = "record"
	FieldOp     = "op"

	// Event correlation fields
	FieldParentGUID = "parent_guid"
	FieldEventType  = "event_type"
	FieldBatchSize  = "batch_size"

	// Dispatch fields
	FieldAttempt    = "attempt"
	FieldStatusCode = "status_code"
	FieldURL        = "url"
	FieldKind       = "kind"

	// Path fields
	FieldPath = "path"
)
