package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"jellybridge/internal/player"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	opts := player.ParsePlayOptions(body)
	if opts == nil {
		writeError(w, http.StatusBadRequest, "invalid play options")
		return
	}
	if err := s.controller.Play(r.Context(), *opts); err != nil {
		writePlaybackError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.controller.Pause()
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.controller.Resume()
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.controller.Stop(r.Context())
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PositionMs int64 `json:"positionMs"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PositionMs < 0 {
		writeError(w, http.StatusBadRequest, "position must not be negative")
		return
	}
	s.controller.SeekTo(req.PositionMs)
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	moved, err := s.controller.Next(r.Context())
	if err != nil {
		writePlaybackError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"moved": moved})
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	moved, err := s.controller.Previous(r.Context())
	if err != nil {
		writePlaybackError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"moved": moved})
}

func (s *Server) handleSetBitrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bitrate int `json:"bitrate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Bitrate <= 0 {
		writeError(w, http.StatusBadRequest, "bitrate must be positive")
		return
	}
	if err := s.controller.SetBitrate(r.Context(), req.Bitrate); err != nil {
		writePlaybackError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleSelectAudioTrack(w http.ResponseWriter, r *http.Request) {
	s.handleSelectTrack(w, r, s.controller.SelectAudioTrack)
}

func (s *Server) handleSelectSubtitleTrack(w http.ResponseWriter, r *http.Request) {
	s.handleSelectTrack(w, r, s.controller.SelectSubtitleTrack)
}

func (s *Server) handleSelectTrack(w http.ResponseWriter, r *http.Request, selectTrack func(ctx context.Context, index int) (bool, error)) {
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	selected, err := selectTrack(r.Context(), req.Index)
	if err != nil {
		writePlaybackError(w, err)
		return
	}
	if !selected {
		writeError(w, http.StatusNotFound, "no such track")
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Status())
}

// writePlaybackError maps playback error kinds to HTTP statuses.
func writePlaybackError(w http.ResponseWriter, err error) {
	var playbackErr *player.Error
	if errors.As(err, &playbackErr) {
		switch playbackErr.Kind {
		case player.InvalidPlayOptions:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case player.UnsupportedContent:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case player.NetworkFailure:
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
