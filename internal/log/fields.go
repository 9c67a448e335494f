// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID  = "session_id"
	FieldClientAddr = "client_addr"
	FieldClientKey  = "client_key"
	FieldVideoID    = "video_id"
	FieldRootID     = "root_id"
	FieldPlaylist   = "playlist"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCommand   = "command"

	// Transfer fields
	FieldBytesSent = "bytes_sent"
	FieldFileSize  = "file_size"
	FieldChunks    = "chunks"
	FieldProgress  = "progress_seconds"
	FieldOutcome   = "outcome"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / network fields
	FieldPath       = "path"
	FieldListenAddr = "listen_addr"
)
