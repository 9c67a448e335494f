// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playback tracks per-client streaming progress.
package playback

import "sync"

// State is the progress tracker for one stream. All methods are safe for
// concurrent use; every operation runs under a single mutex so a pause can
// never interleave with a partial byte update.
type State struct {
	mu sync.Mutex

	videoID       string
	totalFileSize int64
	totalDuration float64
	bytesSent     int64
	currentTime   float64
	paused        bool
	playing       bool
	stopped       bool
}

// Snapshot is a consistent copy of a State.
type Snapshot struct {
	VideoID     string  `json:"video_id"`
	FileSize    int64   `json:"file_size"`
	Duration    float64 `json:"duration_seconds"`
	BytesSent   int64   `json:"bytes_sent"`
	CurrentTime float64 `json:"current_time_seconds"`
	Paused      bool    `json:"paused"`
	Playing     bool    `json:"playing"`
	Stopped     bool    `json:"stopped"`
}

// NewState starts tracking a stream of the given size and duration. The new
// state is playing.
func NewState(videoID string, fileSize int64, duration float64) *State {
	if fileSize < 0 {
		fileSize = 0
	}
	return &State{
		videoID:       videoID,
		totalFileSize: fileSize,
		totalDuration: duration,
		playing:       true,
	}
}

// UpdateBytesSent advances progress by n bytes. It is a no-op while paused
// or stopped. It returns the playback position after the update.
func (s *State) UpdateBytesSent(n int64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused || s.stopped || n <= 0 {
		return s.currentTime
	}
	s.bytesSent += n
	if s.bytesSent > s.totalFileSize {
		s.bytesSent = s.totalFileSize
	}
	s.currentTime = s.positionLocked()
	return s.currentTime
}

func (s *State) positionLocked() float64 {
	if s.totalFileSize == 0 {
		return 0
	}
	return float64(s.bytesSent) / float64(s.totalFileSize) * s.totalDuration
}

// Pause suspends progress. It returns false if the stream was already stopped.
func (s *State) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.paused = true
	s.playing = false
	return true
}

// Resume clears the pause. Resuming a stopped stream has no effect.
func (s *State) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.paused = false
	s.playing = true
	return true
}

// Stop ends the stream. Stop is terminal.
func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.playing = false
	s.paused = false
}

func (s *State) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *State) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *State) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// IsComplete reports whether every byte of the file has been sent.
func (s *State) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesSent >= s.totalFileSize
}

func (s *State) BytesSent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesSent
}

func (s *State) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

func (s *State) VideoID() string {
	return s.videoID
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		VideoID:     s.videoID,
		FileSize:    s.totalFileSize,
		Duration:    s.totalDuration,
		BytesSent:   s.bytesSent,
		CurrentTime: s.currentTime,
		Paused:      s.paused,
		Playing:     s.playing,
		Stopped:     s.stopped,
	}
}
