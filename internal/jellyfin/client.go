// Package jellyfin is a minimal client for the server endpoints used during
// playback: source negotiation, item metadata, playstate reporting and
// transcode cleanup.
package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 10 << 20

// Config identifies the server and this device.
type Config struct {
	BaseURL  string
	Token    string
	UserID   string
	DeviceID string
}

type Client struct {
	baseURL  string
	token    string
	userID   string
	deviceID string
	client   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		userID:   cfg.UserID,
		deviceID: cfg.DeviceID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) UserID() string   { return c.userID }
func (c *Client) DeviceID() string { return c.deviceID }

// PlaybackInfo negotiates playable sources for an item against the supplied
// device profile and playback constraints.
func (c *Client) PlaybackInfo(ctx context.Context, itemID uuid.UUID, req PlaybackInfoRequest) (*PlaybackInfoResponse, error) {
	if req.UserID == "" {
		req.UserID = c.userID
	}
	var info PlaybackInfoResponse
	path := fmt.Sprintf("/Items/%s/PlaybackInfo", itemID)
	if err := c.postJSON(ctx, path, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Item fetches extended metadata for a single item.
func (c *Client) Item(ctx context.Context, itemID uuid.UUID) (*BaseItem, error) {
	query := url.Values{}
	query.Set("ids", itemID.String())
	query.Set("fields", "MediaSources")

	var items itemsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Items", c.userID), query, &items); err != nil {
		return nil, err
	}
	if len(items.Items) == 0 {
		return nil, nil
	}
	return &items.Items[0], nil
}

// StopTranscoding tears down the server-side transcoding session. Transcodes
// are server resources that leak when the client silently walks away.
func (c *Client) StopTranscoding(ctx context.Context, playSessionID string) error {
	query := url.Values{}
	query.Set("deviceId", c.deviceID)
	query.Set("playSessionId", playSessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/Videos/ActiveEncodings?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(c.addAuth(req))
	if err != nil {
		return err
	}
	defer drainBody(resp)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// ReportCapabilities registers this device as a remote control target.
func (c *Client) ReportCapabilities(ctx context.Context) error {
	return c.postJSON(ctx, "/Sessions/Capabilities/Full", ClientCapabilities{
		PlayableMediaTypes:           []string{"Video", "Audio"},
		SupportedCommands:            []string{"PlayState", "Play", "Seek"},
		SupportsMediaControl:         true,
		SupportsPersistentIdentifier: true,
	}, nil)
}

// ReportPlaybackStart, ReportPlaybackProgress and ReportPlaybackStopped push
// playstate to the server's session tracking.
func (c *Client) ReportPlaybackStart(ctx context.Context, state PlaybackState) error {
	return c.postJSON(ctx, "/Sessions/Playing", state, nil)
}

func (c *Client) ReportPlaybackProgress(ctx context.Context, state PlaybackState) error {
	return c.postJSON(ctx, "/Sessions/Playing/Progress", state, nil)
}

func (c *Client) ReportPlaybackStopped(ctx context.Context, state PlaybackState) error {
	return c.postJSON(ctx, "/Sessions/Playing/Stopped", state, nil)
}

// VideoStreamURL is the static stream endpoint for direct play of file-backed
// sources: the original file, unmodified.
func (c *Client) VideoStreamURL(itemID uuid.UUID, mediaSourceID, playSessionID string) string {
	query := url.Values{}
	query.Set("static", "true")
	query.Set("mediaSourceId", mediaSourceID)
	query.Set("playSessionId", playSessionID)
	query.Set("deviceId", c.deviceID)
	query.Set("api_key", c.token)
	return fmt.Sprintf("%s/Videos/%s/stream?%s", c.baseURL, itemID, query.Encode())
}

// VideoStreamByContainerURL is the remux endpoint for direct stream.
func (c *Client) VideoStreamByContainerURL(itemID uuid.UUID, container, mediaSourceID, playSessionID string) string {
	query := url.Values{}
	query.Set("mediaSourceId", mediaSourceID)
	query.Set("playSessionId", playSessionID)
	query.Set("deviceId", c.deviceID)
	query.Set("api_key", c.token)
	return fmt.Sprintf("%s/Videos/%s/stream.%s?%s", c.baseURL, itemID, container, query.Encode())
}

// ResolveURL turns a server-relative path (e.g. a transcoding or subtitle
// delivery URL) into an absolute one.
func (c *Client) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(c.addAuth(req))
	if err != nil {
		return err
	}
	defer drainBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

func (c *Client) addAuth(req *http.Request) *http.Request {
	req.Header.Set("X-Emby-Token", c.token)
	return req
}

func drainBody(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
}
