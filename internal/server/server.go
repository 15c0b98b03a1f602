package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jellybridge/internal/player"
	"jellybridge/internal/profile"
	"jellybridge/internal/store"
)

// PlaybackController is the playback control surface the API exposes.
// Implemented by player.Controller.
type PlaybackController interface {
	Play(ctx context.Context, opts player.PlayOptions) error
	Pause()
	Resume()
	SeekTo(positionMs int64)
	Stop(ctx context.Context)
	Next(ctx context.Context) (bool, error)
	Previous(ctx context.Context) (bool, error)
	SetBitrate(ctx context.Context, bitrate int) error
	SelectAudioTrack(ctx context.Context, streamIndex int) (bool, error)
	SelectSubtitleTrack(ctx context.Context, streamIndex int) (bool, error)
	Status() player.PlaybackStatus
}

// Server is the local control API: playback commands, status and
// preferences for the bridge daemon.
type Server struct {
	router     chi.Router
	controller PlaybackController
	store      *store.Store
	builder    *profile.Builder
	corsOrigin string
}

type Option func(*Server)

func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithProfileBuilder exposes the negotiated device profile for inspection.
func WithProfileBuilder(b *profile.Builder) Option {
	return func(s *Server) { s.builder = b }
}

func NewServer(controller PlaybackController, opts ...Option) *Server {
	srv := &Server{
		router:     chi.NewRouter(),
		controller: controller,
	}
	for _, o := range opts {
		o(srv)
	}
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
