// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/playlist"
	"github.com/ManuGH/streamconnect/internal/session"
	"github.com/go-chi/chi/v5"
)

type catalogResponse struct {
	Entries     []catalog.Entry     `json:"entries"`
	Roots       []catalog.RootState `json:"roots"`
	LastRefresh time.Time           `json:"last_refresh"`
}

type rescanResponse struct {
	Entries int `json:"entries"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (a *api) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entries := a.deps.Catalog.Entries()
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, r, http.StatusOK, catalogResponse{
		Entries:     entries,
		Roots:       a.deps.Catalog.Status(),
		LastRefresh: a.deps.Catalog.LastRefresh(),
	})
}

func (a *api) handleRescan(w http.ResponseWriter, r *http.Request) {
	entries, err := a.deps.Catalog.Refresh(r.Context(), catalog.TriggerAdmin)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "rescan_failed", Detail: err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, rescanResponse{Entries: len(entries)})
}

func (a *api) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := a.deps.Sessions.Sessions()
	if sessions == nil {
		sessions = []session.Info{}
	}
	writeJSON(w, r, http.StatusOK, sessions)
}

func (a *api) handlePlaylistM3U(w http.ResponseWriter, r *http.Request) {
	client, err := url.PathUnescape(chi.URLParam(r, "client"))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "bad_client"})
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "bad_name"})
		return
	}

	p, err := a.deps.Playlists.View(client, name)
	if errors.Is(err, playlist.ErrPlaylistNotFound) {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "playlist_not_found"})
		return
	}
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal", Detail: err.Error()})
		return
	}

	base := strings.TrimSuffix(a.opts.StreamURL, "/")
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	if err := playlist.WriteM3U(w, p, func(e catalog.Entry) string { return base + "/" + e.ID }); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "admin")
		logger.Warn().Err(err).Msg("failed to write playlist")
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "admin")
		logger.Error().Err(err).
			Str(log.FieldEvent, "admin.encode_error").Msg("failed to encode response")
	}
}
