package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jellybridge/internal/player"
	"jellybridge/internal/store"
)

type fakeController struct {
	status    player.PlaybackStatus
	played    []player.PlayOptions
	paused    int
	resumed   int
	stopped   int
	seeked    []int64
	nextMoved bool
	playErr   error
	bitrate   int
}

func (f *fakeController) Play(ctx context.Context, opts player.PlayOptions) error {
	f.played = append(f.played, opts)
	return f.playErr
}

func (f *fakeController) Pause()                   { f.paused++ }
func (f *fakeController) Resume()                  { f.resumed++ }
func (f *fakeController) SeekTo(positionMs int64)  { f.seeked = append(f.seeked, positionMs) }
func (f *fakeController) Stop(ctx context.Context) { f.stopped++ }

func (f *fakeController) Next(ctx context.Context) (bool, error)     { return f.nextMoved, nil }
func (f *fakeController) Previous(ctx context.Context) (bool, error) { return f.nextMoved, nil }

func (f *fakeController) SetBitrate(ctx context.Context, bitrate int) error {
	f.bitrate = bitrate
	return nil
}

func (f *fakeController) SelectAudioTrack(ctx context.Context, streamIndex int) (bool, error) {
	return streamIndex == 1, nil
}

func (f *fakeController) SelectSubtitleTrack(ctx context.Context, streamIndex int) (bool, error) {
	return streamIndex == 1 || streamIndex == -1, nil
}

func (f *fakeController) Status() player.PlaybackStatus { return f.status }

func newTestServer(t *testing.T) (*Server, *fakeController) {
	t.Helper()
	controller := &fakeController{}
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return NewServer(controller, WithStore(st)), controller
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	srv, controller := newTestServer(t)
	controller.status = player.PlaybackStatus{State: "ready", Playing: true, ItemName: "Test Movie"}

	rec := doRequest(t, srv, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got player.PlaybackStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ItemName != "Test Movie" || !got.Playing {
		t.Errorf("got %+v", got)
	}
}

func TestPlay(t *testing.T) {
	srv, controller := newTestServer(t)

	body := `{"ids": ["11111111-2222-3333-4444-555555555555"], "startIndex": 0}`
	rec := doRequest(t, srv, http.MethodPost, "/api/play", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(controller.played) != 1 {
		t.Fatalf("play calls = %d, want 1", len(controller.played))
	}
	if len(controller.played[0].IDs) != 1 {
		t.Error("parsed options not passed through")
	}
}

func TestPlayMalformedBody(t *testing.T) {
	srv, controller := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/play", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(controller.played) != 0 {
		t.Error("malformed intent must not reach the controller")
	}
}

func TestSeekRejectsNegative(t *testing.T) {
	srv, controller := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/seek", `{"positionMs": -1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(controller.seeked) != 0 {
		t.Error("negative seek must not reach the controller")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/seek", `{"positionMs": 30000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(controller.seeked) != 1 || controller.seeked[0] != 30000 {
		t.Errorf("seeked = %v", controller.seeked)
	}
}

func TestNextReportsMovement(t *testing.T) {
	srv, controller := newTestServer(t)
	controller.nextMoved = true

	rec := doRequest(t, srv, http.MethodPost, "/api/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got["moved"] {
		t.Error("expected moved=true")
	}
}

func TestSelectTrackNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/tracks/audio", `{"index": 7}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSetBitrateValidation(t *testing.T) {
	srv, controller := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/bitrate", `{"bitrate": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/bitrate", `{"bitrate": 8000000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if controller.bitrate != 8000000 {
		t.Errorf("bitrate = %d", controller.bitrate)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/api/preferences", `{"directPlayAss": true, "maxStreamingBitrate": 4000000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/preferences", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var prefs store.PlaybackPreferences
	if err := json.Unmarshal(rec.Body.Bytes(), &prefs); err != nil {
		t.Fatal(err)
	}
	if !prefs.DirectPlayAss || prefs.MaxStreamingBitrate != 4000000 {
		t.Errorf("got %+v", prefs)
	}
}

func TestPlaybackErrorMapping(t *testing.T) {
	srv, controller := newTestServer(t)
	controller.playErr = player.NewError(player.UnsupportedContent, nil)

	body := `{"ids": ["11111111-2222-3333-4444-555555555555"]}`
	rec := doRequest(t, srv, http.MethodPost, "/api/play", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
