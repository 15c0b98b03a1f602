package server

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(limitBody)
		r.Use(jsonContentType)
		r.Use(corsMiddleware(s.corsOrigin))

		r.Get("/status", s.handleStatus)

		r.Post("/play", s.handlePlay)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/stop", s.handleStop)
		r.Post("/seek", s.handleSeek)
		r.Post("/next", s.handleNext)
		r.Post("/previous", s.handlePrevious)
		r.Post("/bitrate", s.handleSetBitrate)

		r.Post("/tracks/audio", s.handleSelectAudioTrack)
		r.Post("/tracks/subtitle", s.handleSelectSubtitleTrack)

		if s.store != nil {
			r.Get("/preferences", s.handleGetPreferences)
			r.Put("/preferences", s.handleUpdatePreferences)
		}
		if s.builder != nil {
			r.Get("/profile", s.handleDeviceProfile)
		}
	})
}
