// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID    = "request_id"
	FieldTaskID       = "task_id"
	FieldSubmissionID = "submission_id"

	FieldEvent     = "event"
	FieldComponent = "component"

	// Sync fields
	FieldSource   = "source"
	FieldStage    = "stage"
	FieldVideos   = "videos"
	FieldSyncedAt = "synced_at"

	// Store fields
	FieldKey    = "key"
	FieldPath   = "path"
	FieldStatus = "status"

	// Client fields
	FieldClientHash = "client_hash"
	FieldTransport  = "transport"
)
