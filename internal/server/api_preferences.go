package server

import (
	"net/http"

	"jellybridge/internal/store"
)

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.GetPlaybackPreferences()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs store.PlaybackPreferences
	if err := decodeJSON(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if prefs.MaxStreamingBitrate < 0 {
		writeError(w, http.StatusBadRequest, "bitrate must not be negative")
		return
	}
	if err := s.store.SetPlaybackPreferences(prefs); err != nil {
		writeError(w, http.StatusInternalServerError, "saving preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
