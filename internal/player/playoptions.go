package player

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	"jellybridge/internal/log"
)

// TicksPerMillisecond is the server's position unit: 100ns ticks. The ratio
// is applied identically at every boundary; a deviation corrupts seek
// positions across renegotiations.
const TicksPerMillisecond = 10_000

// PlayOptions is a playback intent, typically parsed from a web-app command.
type PlayOptions struct {
	IDs                 []uuid.UUID
	MediaSourceID       string
	StartIndex          int
	StartPositionTicks  *int64
	AudioStreamIndex    *int
	SubtitleStreamIndex *int
	MaxStreamingBitrate *int
}

// playIntent is the wire shape of the web-app playback command. The indices
// arrive as either JSON numbers or strings depending on the sender.
type playIntent struct {
	IDs                 []string        `json:"ids"`
	MediaSourceID       string          `json:"mediaSourceId"`
	StartIndex          int             `json:"startIndex"`
	StartPositionTicks  int64           `json:"startPositionTicks"`
	AudioStreamIndex    json.RawMessage `json:"audioStreamIndex"`
	SubtitleStreamIndex json.RawMessage `json:"subtitleStreamIndex"`
}

// ParsePlayOptions parses a playback intent. Malformed JSON yields nil, not
// an error: the caller treats it as "ignore the command". Invalid item ids
// within the list are skipped.
func ParsePlayOptions(data []byte) *PlayOptions {
	var intent playIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		logger := log.WithComponent("player")
		logger.Error().Err(err).Msg("failed to parse playback options")
		return nil
	}

	opts := &PlayOptions{
		MediaSourceID: intent.MediaSourceID,
		StartIndex:    intent.StartIndex,
	}
	for _, raw := range intent.IDs {
		if id, err := uuid.Parse(raw); err == nil {
			opts.IDs = append(opts.IDs, id)
		}
	}
	if intent.StartPositionTicks > 0 {
		ticks := intent.StartPositionTicks
		opts.StartPositionTicks = &ticks
	}
	opts.AudioStreamIndex = parseStreamIndex(intent.AudioStreamIndex)
	opts.SubtitleStreamIndex = parseStreamIndex(intent.SubtitleStreamIndex)
	return opts
}

func parseStreamIndex(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return &asInt
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if parsed, err := strconv.Atoi(asString); err == nil {
			return &parsed
		}
	}
	return nil
}

// Equal reports structural equality; the queue manager uses it as an
// idempotence guard against duplicate intents.
func (o PlayOptions) Equal(other PlayOptions) bool {
	if len(o.IDs) != len(other.IDs) ||
		o.MediaSourceID != other.MediaSourceID ||
		o.StartIndex != other.StartIndex ||
		!equalInt64Ptr(o.StartPositionTicks, other.StartPositionTicks) ||
		!equalIntPtr(o.AudioStreamIndex, other.AudioStreamIndex) ||
		!equalIntPtr(o.SubtitleStreamIndex, other.SubtitleStreamIndex) ||
		!equalIntPtr(o.MaxStreamingBitrate, other.MaxStreamingBitrate) {
		return false
	}
	for i := range o.IDs {
		if o.IDs[i] != other.IDs[i] {
			return false
		}
	}
	return true
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
