package player

import (
	"fmt"

	"github.com/google/uuid"

	"jellybridge/internal/jellyfin"
	"jellybridge/internal/profile"
)

// PlayMethod is the negotiated delivery mode for one media source.
type PlayMethod string

const (
	DirectPlay   PlayMethod = "DirectPlay"
	DirectStream PlayMethod = "DirectStream"
	Transcode    PlayMethod = "Transcode"
)

// undeterminedLanguage is the language marker for streams without one.
// The player engine requires a non-empty language tag.
const undeterminedLanguage = "und"

// ExternalSubtitleStream is a subtitle delivered as a separate URL rather
// than multiplexed into the container.
type ExternalSubtitleStream struct {
	Index        int
	DeliveryURL  string
	MimeType     string
	DisplayTitle string
	Language     string
}

// SourceOptions carry the playback constraints a source was resolved with.
type SourceOptions struct {
	MaxStreamingBitrate *int
	StartTimeTicks      *int64
	AudioStreamIndex    *int
	SubtitleStreamIndex *int
}

// MediaSource is the resolved description of one playable item. Instances
// are treated as immutable: selection changes produce a new value which the
// queue manager swaps in atomically.
type MediaSource struct {
	ItemID              uuid.UUID
	Item                *jellyfin.BaseItem
	SourceInfo          jellyfin.MediaSourceInfo
	PlaySessionID       string
	PlayMethod          PlayMethod
	MaxStreamingBitrate *int

	// StartTimeMs supports resume-after-renegotiation.
	StartTimeMs int64

	VideoStream       *jellyfin.MediaStream
	AudioStreams      []jellyfin.MediaStream
	SubtitleStreams   []jellyfin.MediaStream
	ExternalSubtitles []ExternalSubtitleStream

	SelectedAudioStream    *jellyfin.MediaStream
	SelectedSubtitleStream *jellyfin.MediaStream
}

// NewMediaSource classifies the source's raw streams and derives the play
// method by priority: direct play, then direct stream, then transcode.
// A source supporting none of the three is unplayable.
func NewMediaSource(
	itemID uuid.UUID,
	item *jellyfin.BaseItem,
	sourceInfo jellyfin.MediaSourceInfo,
	playSessionID string,
	opts SourceOptions,
) (*MediaSource, error) {
	method, err := derivePlayMethod(sourceInfo)
	if err != nil {
		return nil, err
	}

	source := &MediaSource{
		ItemID:              itemID,
		Item:                item,
		SourceInfo:          sourceInfo,
		PlaySessionID:       playSessionID,
		PlayMethod:          method,
		MaxStreamingBitrate: opts.MaxStreamingBitrate,
	}
	if opts.StartTimeTicks != nil {
		source.StartTimeMs = *opts.StartTimeTicks / TicksPerMillisecond
	}

	audioIndex := indexOrDefault(opts.AudioStreamIndex, sourceInfo.DefaultAudioStreamIndex)
	subtitleIndex := indexOrDefault(opts.SubtitleStreamIndex, sourceInfo.DefaultSubtitleStreamIndex)

	for _, stream := range sourceInfo.MediaStreams {
		switch stream.Type {
		case jellyfin.StreamVideo:
			// Multi-video-stream sources are not supported; keep the first.
			if source.VideoStream == nil {
				source.VideoStream = cloneStream(stream)
			}
		case jellyfin.StreamAudio:
			source.AudioStreams = append(source.AudioStreams, stream)
		case jellyfin.StreamSubtitle:
			source.SubtitleStreams = append(source.SubtitleStreams, stream)
			if stream.DeliveryMethod == profile.SubtitleExternal && stream.DeliveryURL != "" {
				if mimeType, ok := subtitleMimeType(stream.Codec); ok {
					language := stream.Language
					if language == "" {
						language = undeterminedLanguage
					}
					source.ExternalSubtitles = append(source.ExternalSubtitles, ExternalSubtitleStream{
						Index:        stream.Index,
						DeliveryURL:  stream.DeliveryURL,
						MimeType:     mimeType,
						DisplayTitle: stream.DisplayTitle,
						Language:     language,
					})
				}
			}
		case jellyfin.StreamEmbeddedImage, jellyfin.StreamData, jellyfin.StreamLyric:
			// Not playable tracks.
		}
	}

	// Selection pointers must reference this source's own slices, so they are
	// resolved only after the appends stop relocating the backing arrays.
	if audioIndex != nil {
		source.SelectedAudioStream = source.AudioStreamByIndex(*audioIndex)
	}
	if subtitleIndex != nil {
		source.SelectedSubtitleStream = source.SubtitleStreamByIndex(*subtitleIndex)
	}

	return source, nil
}

func derivePlayMethod(sourceInfo jellyfin.MediaSourceInfo) (PlayMethod, error) {
	switch {
	case sourceInfo.SupportsDirectPlay:
		return DirectPlay, nil
	case sourceInfo.SupportsDirectStream:
		return DirectStream, nil
	case sourceInfo.SupportsTranscoding:
		return Transcode, nil
	default:
		return "", fmt.Errorf("no play method for source %s", sourceInfo.ID)
	}
}

// Name is the display title of the item, falling back to the source name.
func (s *MediaSource) Name() string {
	if s.Item != nil && s.Item.Name != "" {
		return s.Item.Name
	}
	return s.SourceInfo.Name
}

// RunTimeMs is the total duration in milliseconds.
func (s *MediaSource) RunTimeMs() int64 {
	return s.SourceInfo.RunTimeTicks / TicksPerMillisecond
}

// AudioStreamByIndex returns the audio stream with the given server index,
// or nil.
func (s *MediaSource) AudioStreamByIndex(index int) *jellyfin.MediaStream {
	for i := range s.AudioStreams {
		if s.AudioStreams[i].Index == index {
			return &s.AudioStreams[i]
		}
	}
	return nil
}

// SubtitleStreamByIndex returns the subtitle stream with the given server
// index, or nil.
func (s *MediaSource) SubtitleStreamByIndex(index int) *jellyfin.MediaStream {
	for i := range s.SubtitleStreams {
		if s.SubtitleStreams[i].Index == index {
			return &s.SubtitleStreams[i]
		}
	}
	return nil
}

// SelectAudioStream returns a copy of the source with the given audio stream
// selected. The stream must be the exact entry from this source's own list;
// otherwise the selection fails and the receiver is unchanged.
func (s *MediaSource) SelectAudioStream(stream *jellyfin.MediaStream) (*MediaSource, bool) {
	if stream == nil || s.AudioStreamByIndex(stream.Index) != stream {
		return s, false
	}
	selected := *s
	selected.SelectedAudioStream = stream
	return &selected, true
}

// SelectSubtitleStream returns a copy of the source with the given subtitle
// stream selected. Passing nil disables subtitles.
func (s *MediaSource) SelectSubtitleStream(stream *jellyfin.MediaStream) (*MediaSource, bool) {
	if stream != nil && s.SubtitleStreamByIndex(stream.Index) != stream {
		return s, false
	}
	selected := *s
	selected.SelectedSubtitleStream = stream
	return &selected, true
}

// EmbeddedStreamIndex returns the position of the given stream counting only
// embedded streams in their original order. The player engine indexes
// embedded tracks separately from externally delivered ones. Panics if the
// stream does not belong to this source; that is a programmer error.
func (s *MediaSource) EmbeddedStreamIndex(stream *jellyfin.MediaStream) int {
	embedded := 0
	for _, candidate := range s.SourceInfo.MediaStreams {
		if candidate.Index == stream.Index {
			return embedded
		}
		if !candidate.IsExternal {
			embedded++
		}
	}
	panic(fmt.Sprintf("stream %d not found in media source %s", stream.Index, s.SourceInfo.ID))
}

// subtitleMimeType maps a subtitle codec to the MIME type the player engine
// needs for sideloaded tracks. Formats without a recognized MIME type are
// not sideloaded.
func subtitleMimeType(codec string) (string, bool) {
	switch codec {
	case "srt", "subrip":
		return "application/x-subrip", true
	case "ttml":
		return "application/ttml+xml", true
	case "vtt", "webvtt":
		return "text/vtt", true
	case "ssa", "ass":
		return "text/x-ssa", true
	default:
		return "", false
	}
}

func indexOrDefault(requested, fallback *int) *int {
	if requested != nil {
		return requested
	}
	return fallback
}

func cloneStream(stream jellyfin.MediaStream) *jellyfin.MediaStream {
	return &stream
}
