// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package protocol

import (
	"fmt"
	"strings"
)

// Op identifies a client command.
type Op string

const (
	OpStream             Op = "STREAM"
	OpPause              Op = "PAUSE"
	OpResume             Op = "RESUME"
	OpStop               Op = "STOP"
	OpChangeVideo        Op = "CHANGE_VIDEO"
	OpList               Op = "LIST"
	OpCreatePlaylist     Op = "CREATE_PLAYLIST"
	OpAddToPlaylist      Op = "ADD_TO_PLAYLIST"
	OpRemoveFromPlaylist Op = "REMOVE_FROM_PLAYLIST"
	OpViewPlaylist       Op = "VIEW_PLAYLIST"
	OpListPlaylists      Op = "LIST_PLAYLISTS"
	OpExit               Op = "EXIT"
)

// Reply tokens carried in REPLY frames.
const (
	ReplyVideoPaused              = "VIDEO_PAUSED"
	ReplyVideoResumed             = "VIDEO_RESUMED"
	ReplyVideoStopped             = "VIDEO_STOPPED"
	ReplyNoActiveVideo            = "NO_ACTIVE_VIDEO"
	ReplyPlaylistCreated          = "PLAYLIST_CREATED" // suffixed with ":<name>"
	ReplyPlaylistAlreadyExists    = "PLAYLIST_ALREADY_EXISTS"
	ReplyVideoAddedToPlaylist     = "VIDEO_ADDED_TO_PLAYLIST"
	ReplyVideoRemovedFromPlaylist = "VIDEO_REMOVED_FROM_PLAYLIST"
	ReplyVideoNotFound            = "VIDEO_NOT_FOUND"
	ReplyPlaylistNotFound         = "PLAYLIST_NOT_FOUND"
	ReplyPlaylists                = "PLAYLISTS" // suffixed with ":<a>,<b>"
)

// Command is a parsed client command. Name is the playlist name and VideoID
// the video argument, when the op takes them.
type Command struct {
	Op      Op
	Name    string
	VideoID string
}

// String renders the command in wire form.
func (c Command) String() string {
	switch c.Op {
	case OpStream:
		return string(c.Op) + ":" + c.VideoID
	case OpCreatePlaylist, OpViewPlaylist:
		return string(c.Op) + ":" + c.Name
	case OpAddToPlaylist, OpRemoveFromPlaylist:
		return string(c.Op) + ":" + c.Name + ":" + c.VideoID
	default:
		return string(c.Op)
	}
}

// ParseCommand parses a command string. Surrounding whitespace is ignored.
// An unrecognised verb yields ErrUnknownCommand; a known verb with missing
// or extra arguments yields ErrMalformed.
func ParseCommand(raw string) (Command, error) {
	s := strings.TrimSpace(raw)
	verb, rest, hasArgs := strings.Cut(s, ":")
	op := Op(verb)

	switch op {
	case OpPause, OpResume, OpStop, OpChangeVideo, OpList, OpListPlaylists, OpExit:
		if hasArgs {
			return Command{}, fmt.Errorf("%w: %s takes no arguments", ErrMalformed, op)
		}
		return Command{Op: op}, nil

	case OpStream:
		if rest == "" {
			return Command{}, fmt.Errorf("%w: %s requires a video id", ErrMalformed, op)
		}
		return Command{Op: op, VideoID: rest}, nil

	case OpCreatePlaylist, OpViewPlaylist:
		if rest == "" || strings.Contains(rest, ":") {
			return Command{}, fmt.Errorf("%w: %s requires a playlist name", ErrMalformed, op)
		}
		return Command{Op: op, Name: rest}, nil

	case OpAddToPlaylist, OpRemoveFromPlaylist:
		name, id, ok := strings.Cut(rest, ":")
		if !ok || name == "" || id == "" {
			return Command{}, fmt.Errorf("%w: %s requires <name>:<id>", ErrMalformed, op)
		}
		return Command{Op: op, Name: name, VideoID: id}, nil
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, truncate(s, 64))
}

// Interrupts reports whether the command is one of the in-stream control
// commands.
func (c Command) Interrupts() bool {
	switch c.Op {
	case OpPause, OpResume, OpStop, OpChangeVideo, OpStream:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
