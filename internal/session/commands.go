// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/metrics"
	"github.com/ManuGH/streamconnect/internal/playlist"
	"github.com/ManuGH/streamconnect/internal/protocol"
)

// answer handles the commands that never touch playback: catalog listing
// and the playlist operations. They are valid in any state.
func (s *Session) answer(ctx context.Context, cmd protocol.Command) error {
	op := string(cmd.Op)
	store := s.deps.Playlists

	switch cmd.Op {
	case protocol.OpList:
		metrics.IncCommand(op, "ok")
		return s.sendCatalog(ctx, catalog.TriggerList, true)

	case protocol.OpCreatePlaylist:
		reply := protocol.ReplyPlaylistCreated + ":" + cmd.Name
		if err := store.Create(s.key, cmd.Name); err != nil {
			reply = playlistReply(err)
		}
		metrics.IncCommand(op, replyToken(reply))
		return s.w.Reply(reply)

	case protocol.OpAddToPlaylist:
		reply := protocol.ReplyVideoAddedToPlaylist
		if err := store.AddVideo(s.key, cmd.Name, cmd.VideoID); err != nil {
			reply = playlistReply(err)
		}
		metrics.IncCommand(op, reply)
		return s.w.Reply(reply)

	case protocol.OpRemoveFromPlaylist:
		reply := protocol.ReplyVideoRemovedFromPlaylist
		if err := store.RemoveVideo(s.key, cmd.Name, cmd.VideoID); err != nil {
			reply = playlistReply(err)
		}
		metrics.IncCommand(op, reply)
		return s.w.Reply(reply)

	case protocol.OpViewPlaylist:
		p, err := store.View(s.key, cmd.Name)
		if err != nil {
			reply := playlistReply(err)
			metrics.IncCommand(op, reply)
			return s.w.Reply(reply)
		}
		metrics.IncCommand(op, "ok")
		return s.w.Playlist(playlistView(p))

	case protocol.OpListPlaylists:
		metrics.IncCommand(op, "ok")
		return s.w.Reply(protocol.ReplyPlaylists + ":" + strings.Join(store.Names(s.key), ","))

	default:
		return protocol.ErrUnknownCommand
	}
}

// sendCatalog writes a CATALOG frame. With refresh set the roots are
// rescanned first; a failed rescan falls back to the last listing.
func (s *Session) sendCatalog(ctx context.Context, trigger string, refresh bool) error {
	entries := s.deps.Catalog.Entries()
	if refresh {
		fresh, err := s.deps.Catalog.Refresh(ctx, trigger)
		if err != nil {
			s.logger.Warn().Err(err).Str(log.FieldEvent, "catalog.refresh_failed").Msg("serving cached catalog")
		} else {
			entries = fresh
		}
	}
	return s.w.Catalog(catalogItems(entries))
}

func playlistReply(err error) string {
	switch {
	case errors.Is(err, playlist.ErrAlreadyExists):
		return protocol.ReplyPlaylistAlreadyExists
	case errors.Is(err, playlist.ErrPlaylistNotFound):
		return protocol.ReplyPlaylistNotFound
	case errors.Is(err, playlist.ErrVideoNotFound):
		return protocol.ReplyVideoNotFound
	default:
		return protocol.ReplyPlaylistNotFound
	}
}

func replyToken(reply string) string {
	token, _, _ := strings.Cut(reply, ":")
	return token
}

func catalogItem(e catalog.Entry) protocol.CatalogItem {
	return protocol.CatalogItem{
		ID:              e.ID,
		Title:           e.Title,
		RootID:          e.RootID,
		SizeBytes:       e.SizeBytes,
		DurationSeconds: e.DurationSeconds,
	}
}

func catalogItems(entries []catalog.Entry) []protocol.CatalogItem {
	items := make([]protocol.CatalogItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, catalogItem(e))
	}
	return items
}

func playlistView(p playlist.Playlist) protocol.PlaylistView {
	return protocol.PlaylistView{
		Name:   p.Name,
		Videos: catalogItems(p.Videos),
		Text:   p.String(),
	}
}
