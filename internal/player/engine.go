package player

import "github.com/google/uuid"

// StreamProtocol hints how the engine should open the primary URL.
type StreamProtocol string

const (
	// Progressive is a single continuous stream (direct play or remux).
	Progressive StreamProtocol = "progressive"
	// HLS is segmented streaming, prepared chunklessly.
	HLS StreamProtocol = "hls"
)

// SubtitleSource is one sideloaded subtitle track.
type SubtitleSource struct {
	Index    int
	URL      string
	MimeType string
	Language string
	Label    string
}

// StreamSource is the prepared stream descriptor handed to the player
// engine: the primary media URL plus any external subtitle tracks merged in.
type StreamSource struct {
	ItemID    uuid.UUID
	URL       string
	Protocol  StreamProtocol
	Subtitles []SubtitleSource
}

// State is the engine's playback state.
type State int

const (
	StateIdle State = iota
	StateBuffering
	StateReady
	StateEnded
)

// Engine is the black-box playback engine. It owns decoding and rendering;
// this subsystem only ever hands it one active stream source at a time.
type Engine interface {
	// Prepare replaces the active stream source and seeks to the start
	// position before playback begins.
	Prepare(source StreamSource, startPositionMs int64, playWhenReady bool) error
	Pause()
	Resume()
	SeekTo(positionMs int64)
	Stop()

	PositionMs() int64
	BufferedMs() int64
	DurationMs() int64
	State() State
	Playing() bool
}
