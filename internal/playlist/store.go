// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playlist keeps per-client named playlists in memory.
package playlist

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ManuGH/streamconnect/internal/catalog"
)

var (
	ErrAlreadyExists    = errors.New("playlist: already exists")
	ErrPlaylistNotFound = errors.New("playlist: not found")
	ErrVideoNotFound    = errors.New("playlist: video not found")
)

// Resolver looks videos up by id.
type Resolver interface {
	FindByID(id string) (catalog.Entry, error)
}

// Playlist is an ordered set of videos, unique by id.
type Playlist struct {
	Name   string
	Videos []catalog.Entry
}

// Contains reports whether the playlist holds the video id.
func (p Playlist) Contains(id string) bool {
	return p.indexOf(id) >= 0
}

func (p Playlist) indexOf(id string) int {
	return slices.IndexFunc(p.Videos, func(e catalog.Entry) bool { return e.ID == id })
}

// String renders the playlist as plain text, one title per line.
func (p Playlist) String() string {
	var b strings.Builder
	b.WriteString("Playlist: ")
	b.WriteString(p.Name)
	b.WriteByte('\n')
	for _, v := range p.Videos {
		b.WriteString("- ")
		b.WriteString(v.Title)
		b.WriteByte('\n')
	}
	return b.String()
}

type clientPlaylists struct {
	order  []string
	byName map[string]*Playlist
}

// Store maps client keys to their playlists.
type Store struct {
	resolver Resolver

	mu      sync.RWMutex
	clients map[string]*clientPlaylists
}

// NewStore creates an empty store resolving video ids through r.
func NewStore(r Resolver) *Store {
	return &Store{resolver: r, clients: make(map[string]*clientPlaylists)}
}

// Create adds an empty playlist. Creating an existing name fails with
// ErrAlreadyExists and leaves the playlist untouched.
func (s *Store) Create(client, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.clients[client]
	if !ok {
		cp = &clientPlaylists{byName: make(map[string]*Playlist)}
		s.clients[client] = cp
	}
	if _, exists := cp.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	cp.byName[name] = &Playlist{Name: name}
	cp.order = append(cp.order, name)
	return nil
}

// AddVideo appends a video. Adding a video already present is a no-op.
func (s *Store) AddVideo(client, name, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookupLocked(client, name)
	if err != nil {
		return err
	}
	if p.Contains(videoID) {
		return nil
	}
	entry, err := s.resolver.FindByID(videoID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}
	p.Videos = append(p.Videos, entry)
	return nil
}

// RemoveVideo deletes a video from a playlist.
func (s *Store) RemoveVideo(client, name, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookupLocked(client, name)
	if err != nil {
		return err
	}
	i := p.indexOf(videoID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}
	p.Videos = slices.Delete(p.Videos, i, i+1)
	return nil
}

// View returns a copy of the playlist.
func (s *Store) View(client, name string) (Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.lookupLocked(client, name)
	if err != nil {
		return Playlist{}, err
	}
	return Playlist{Name: p.Name, Videos: slices.Clone(p.Videos)}, nil
}

// Names lists the client's playlists in creation order.
func (s *Store) Names(client string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.clients[client]
	if !ok {
		return nil
	}
	return slices.Clone(cp.order)
}

// RemoveClient drops every playlist of the client.
func (s *Store) RemoveClient(client string) {
	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
}

// Clients lists the clients holding playlists, sorted.
func (s *Store) Clients() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (s *Store) lookupLocked(client, name string) (*Playlist, error) {
	if cp, ok := s.clients[client]; ok {
		if p, ok := cp.byName[name]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
}
