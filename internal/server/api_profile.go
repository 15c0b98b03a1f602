package server

import (
	"net/http"

	"jellybridge/internal/profile"
)

// handleDeviceProfile exposes the device profile that playback negotiation
// sends to the media server. Useful for diagnosing why a title transcodes.
func (s *Server) handleDeviceProfile(w http.ResponseWriter, r *http.Request) {
	opts := profile.Options{}
	if s.store != nil {
		if prefs, err := s.store.GetPlaybackPreferences(); err == nil {
			opts.DirectPlayAss = prefs.DirectPlayAss
		}
	}
	deviceProfile := s.builder.BuildDeviceProfile(r.Context(), opts)
	writeJSON(w, http.StatusOK, deviceProfile)
}
