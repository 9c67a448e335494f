// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package protocol implements the streamd wire format.
//
// Every message is a frame: a six byte header (version, kind, big-endian
// payload length) followed by the payload. Clients send COMMAND frames
// carrying a colon-delimited command string; the server answers with catalog,
// reply, playlist and video frames. Unknown kinds, a version mismatch,
// oversized or truncated frames are protocol violations.
package protocol
