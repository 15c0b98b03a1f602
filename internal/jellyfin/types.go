package jellyfin

import (
	"jellybridge/internal/profile"
)

// StreamType classifies an elementary stream within a media source.
type StreamType string

const (
	StreamVideo         StreamType = "Video"
	StreamAudio         StreamType = "Audio"
	StreamSubtitle      StreamType = "Subtitle"
	StreamEmbeddedImage StreamType = "EmbeddedImage"
	StreamData          StreamType = "Data"
	StreamLyric         StreamType = "Lyric"
)

// MediaProtocol is the transport of a media source.
type MediaProtocol string

const (
	ProtocolFile MediaProtocol = "File"
	ProtocolHTTP MediaProtocol = "Http"
)

// MediaStream is one elementary stream as reported by the server.
type MediaStream struct {
	Index          int                            `json:"Index"`
	Type           StreamType                     `json:"Type"`
	Codec          string                         `json:"Codec"`
	Language       string                         `json:"Language"`
	DisplayTitle   string                         `json:"DisplayTitle"`
	IsExternal     bool                           `json:"IsExternal"`
	DeliveryMethod profile.SubtitleDeliveryMethod `json:"DeliveryMethod,omitempty"`
	DeliveryURL    string                         `json:"DeliveryUrl,omitempty"`
	BitRate        int                            `json:"BitRate,omitempty"`
	Width          int                            `json:"Width,omitempty"`
	Height         int                            `json:"Height,omitempty"`
	Channels       int                            `json:"Channels,omitempty"`
}

// MediaSourceInfo is one candidate source for an item.
type MediaSourceInfo struct {
	ID                         string        `json:"Id"`
	Name                       string        `json:"Name"`
	Protocol                   MediaProtocol `json:"Protocol"`
	Container                  string        `json:"Container"`
	Path                       string        `json:"Path"`
	SupportsDirectPlay         bool          `json:"SupportsDirectPlay"`
	SupportsDirectStream       bool          `json:"SupportsDirectStream"`
	SupportsTranscoding        bool          `json:"SupportsTranscoding"`
	TranscodingURL             string        `json:"TranscodingUrl,omitempty"`
	TranscodingSubProtocol     string        `json:"TranscodingSubProtocol,omitempty"`
	MediaStreams               []MediaStream `json:"MediaStreams"`
	DefaultAudioStreamIndex    *int          `json:"DefaultAudioStreamIndex,omitempty"`
	DefaultSubtitleStreamIndex *int          `json:"DefaultSubtitleStreamIndex,omitempty"`
	RunTimeTicks               int64         `json:"RunTimeTicks"`
}

// BaseItem is the subset of the server's item metadata this client displays.
type BaseItem struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"`
	SeriesName     string            `json:"SeriesName,omitempty"`
	Artists        []string          `json:"Artists,omitempty"`
	ImageTags      map[string]string `json:"ImageTags,omitempty"`
	ProductionYear int               `json:"ProductionYear,omitempty"`
	RunTimeTicks   int64             `json:"RunTimeTicks,omitempty"`
}

// PlaybackInfoRequest is the negotiation request body.
type PlaybackInfoRequest struct {
	UserID              string                 `json:"UserId"`
	MediaSourceID       string                 `json:"MediaSourceId,omitempty"`
	DeviceProfile       *profile.DeviceProfile `json:"DeviceProfile,omitempty"`
	MaxStreamingBitrate *int                   `json:"MaxStreamingBitrate,omitempty"`
	StartTimeTicks      *int64                 `json:"StartTimeTicks,omitempty"`
	AudioStreamIndex    *int                   `json:"AudioStreamIndex,omitempty"`
	SubtitleStreamIndex *int                   `json:"SubtitleStreamIndex,omitempty"`
	AutoOpenLiveStream  bool                   `json:"AutoOpenLiveStream"`
}

// PlaybackInfoResponse carries the candidate sources for one item.
type PlaybackInfoResponse struct {
	MediaSources  []MediaSourceInfo `json:"MediaSources"`
	PlaySessionID string            `json:"PlaySessionId"`
	ErrorCode     string            `json:"ErrorCode,omitempty"`
}

// PlaybackState is a playstate report (start, progress or stop).
type PlaybackState struct {
	ItemID              string `json:"ItemId"`
	MediaSourceID       string `json:"MediaSourceId"`
	PlaySessionID       string `json:"PlaySessionId"`
	PositionTicks       int64  `json:"PositionTicks"`
	IsPaused            bool   `json:"IsPaused"`
	PlayMethod          string `json:"PlayMethod"`
	AudioStreamIndex    *int   `json:"AudioStreamIndex,omitempty"`
	SubtitleStreamIndex *int   `json:"SubtitleStreamIndex,omitempty"`
	CanSeek             bool   `json:"CanSeek"`
}

// ClientCapabilities advertises what this device can play and which remote
// commands it accepts.
type ClientCapabilities struct {
	PlayableMediaTypes           []string `json:"PlayableMediaTypes"`
	SupportedCommands            []string `json:"SupportedCommands"`
	SupportsMediaControl         bool     `json:"SupportsMediaControl"`
	SupportsPersistentIdentifier bool     `json:"SupportsPersistentIdentifier"`
}

type itemsResponse struct {
	Items []BaseItem `json:"Items"`
}
