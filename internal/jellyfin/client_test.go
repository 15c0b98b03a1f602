package jellyfin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func testClient(url string) *Client {
	return New(Config{
		BaseURL:  url,
		Token:    "test-key",
		UserID:   "user-1",
		DeviceID: "device-1",
	})
}

func TestPlaybackInfo(t *testing.T) {
	data, err := os.ReadFile("testdata/playback_info.json")
	if err != nil {
		t.Fatal(err)
	}

	itemID := uuid.MustParse("f3a1b2c4-d5e6-f7a8-b9c0-d1e2f3a4b5c6")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") != "test-key" {
			t.Error("missing X-Emby-Token header")
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		wantPath := "/Items/" + itemID.String() + "/PlaybackInfo"
		if r.URL.Path != wantPath {
			t.Errorf("path = %s, want %s", r.URL.Path, wantPath)
		}

		var req PlaybackInfoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.UserID != "user-1" {
			t.Errorf("user id = %q, want the client default", req.UserID)
		}
		if !req.AutoOpenLiveStream {
			t.Error("AutoOpenLiveStream not set")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	info, err := c.PlaybackInfo(context.Background(), itemID, PlaybackInfoRequest{AutoOpenLiveStream: true})
	if err != nil {
		t.Fatal(err)
	}

	if info.PlaySessionID != "session-12345" {
		t.Errorf("play session id = %q", info.PlaySessionID)
	}
	if len(info.MediaSources) != 1 {
		t.Fatalf("media sources = %d, want 1", len(info.MediaSources))
	}
	source := info.MediaSources[0]
	if !source.SupportsDirectPlay {
		t.Error("SupportsDirectPlay not parsed")
	}
	if len(source.MediaStreams) != 3 {
		t.Fatalf("media streams = %d, want 3", len(source.MediaStreams))
	}
	subtitle := source.MediaStreams[2]
	if !subtitle.IsExternal || subtitle.DeliveryURL == "" {
		t.Errorf("external subtitle not parsed: %+v", subtitle)
	}
	if source.DefaultAudioStreamIndex == nil || *source.DefaultAudioStreamIndex != 1 {
		t.Error("default audio stream index not parsed")
	}
}

func TestPlaybackInfoServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	if _, err := c.PlaybackInfo(context.Background(), uuid.New(), PlaybackInfoRequest{}); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestStopTranscoding(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		if r.URL.Path != "/Videos/ActiveEncodings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	if err := c.StopTranscoding(context.Background(), "session-1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotQuery, "deviceId=device-1") || !strings.Contains(gotQuery, "playSessionId=session-1") {
		t.Errorf("query = %q, missing device or session id", gotQuery)
	}
}

func TestItemReturnsNilWhenMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/Users/user-1/Items") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Items":[]}`))
	}))
	defer ts.Close()

	c := testClient(ts.URL)
	item, err := c.Item(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if item != nil {
		t.Fatalf("expected nil item, got %+v", item)
	}
}

func TestVideoStreamURL(t *testing.T) {
	c := testClient("http://jf.example")
	itemID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	got := c.VideoStreamURL(itemID, "source-1", "session-1")
	if !strings.HasPrefix(got, "http://jf.example/Videos/"+itemID.String()+"/stream?") {
		t.Errorf("unexpected stream URL: %s", got)
	}
	for _, param := range []string{"static=true", "mediaSourceId=source-1", "playSessionId=session-1", "deviceId=device-1", "api_key=test-key"} {
		if !strings.Contains(got, param) {
			t.Errorf("stream URL missing %s: %s", param, got)
		}
	}

	remux := c.VideoStreamByContainerURL(itemID, "mkv", "source-1", "session-1")
	if !strings.Contains(remux, "/stream.mkv?") {
		t.Errorf("container not in remux URL: %s", remux)
	}
	if strings.Contains(remux, "static=true") {
		t.Errorf("remux URL must not be static: %s", remux)
	}
}

func TestResolveURL(t *testing.T) {
	c := testClient("http://jf.example")

	if got := c.ResolveURL("/videos/hls/main.m3u8"); got != "http://jf.example/videos/hls/main.m3u8" {
		t.Errorf("relative path = %q", got)
	}
	if got := c.ResolveURL("videos/hls/main.m3u8"); got != "http://jf.example/videos/hls/main.m3u8" {
		t.Errorf("path without slash = %q", got)
	}
	if got := c.ResolveURL("https://cdn.example/x.m3u8"); got != "https://cdn.example/x.m3u8" {
		t.Errorf("absolute URL must pass through, got %q", got)
	}
}
