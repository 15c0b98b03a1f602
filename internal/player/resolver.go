package player

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jellybridge/internal/jellyfin"
	"jellybridge/internal/log"
	"jellybridge/internal/profile"
)

// ResolveOptions are the per-request playback constraints.
type ResolveOptions struct {
	MediaSourceID       string
	MaxStreamingBitrate *int
	StartTimeTicks      *int64
	AudioStreamIndex    *int
	SubtitleStreamIndex *int
}

// Resolver negotiates playable sources with the server.
type Resolver struct {
	api *jellyfin.Client
	log zerolog.Logger
}

func NewResolver(api *jellyfin.Client) *Resolver {
	return &Resolver{
		api: api,
		log: log.WithComponent("resolver"),
	}
}

// ResolveMediaSource sends the device profile and constraints to the server
// and wraps the chosen candidate in a MediaSource. Network errors surface as
// NetworkFailure; the caller must not retry automatically. An empty or
// unplayable candidate list is UnsupportedContent.
func (r *Resolver) ResolveMediaSource(
	ctx context.Context,
	itemID uuid.UUID,
	deviceProfile *profile.DeviceProfile,
	opts ResolveOptions,
) (*MediaSource, error) {
	mediaSourceID := opts.MediaSourceID
	if mediaSourceID == "" {
		// Without a media source id the server silently ignores the stream
		// indices; it matches sources by the undashed item id.
		mediaSourceID = strings.ReplaceAll(itemID.String(), "-", "")
	}

	info, err := r.api.PlaybackInfo(ctx, itemID, jellyfin.PlaybackInfoRequest{
		MediaSourceID:       mediaSourceID,
		DeviceProfile:       deviceProfile,
		MaxStreamingBitrate: opts.MaxStreamingBitrate,
		StartTimeTicks:      opts.StartTimeTicks,
		AudioStreamIndex:    opts.AudioStreamIndex,
		SubtitleStreamIndex: opts.SubtitleStreamIndex,
		AutoOpenLiveStream:  true,
	})
	if err != nil {
		r.log.Error().Err(err).Stringer("item_id", itemID).Msg("failed to load media source")
		return nil, NewError(NetworkFailure, err)
	}
	if info.PlaySessionID == "" {
		return nil, NewError(UnsupportedContent, nil)
	}

	sourceInfo, ok := pickSource(info.MediaSources, itemID)
	if !ok {
		return nil, NewError(UnsupportedContent, nil)
	}

	// Extended metadata is best-effort; playback works without it.
	item, err := r.api.Item(ctx, itemID)
	if err != nil {
		r.log.Warn().Err(err).Stringer("item_id", itemID).Msg("failed to load item metadata")
		item = nil
	}

	source, err := NewMediaSource(itemID, item, sourceInfo, info.PlaySessionID, SourceOptions{
		MaxStreamingBitrate: opts.MaxStreamingBitrate,
		StartTimeTicks:      opts.StartTimeTicks,
		AudioStreamIndex:    opts.AudioStreamIndex,
		SubtitleStreamIndex: opts.SubtitleStreamIndex,
	})
	if err != nil {
		r.log.Error().Err(err).Stringer("item_id", itemID).Msg("cannot create media source")
		return nil, NewError(UnsupportedContent, err)
	}
	return source, nil
}

// pickSource prefers the candidate whose id matches the requested item,
// falling back to the first candidate.
func pickSource(sources []jellyfin.MediaSourceInfo, itemID uuid.UUID) (jellyfin.MediaSourceInfo, bool) {
	for _, source := range sources {
		if id, err := uuid.Parse(source.ID); err == nil && id == itemID {
			return source, true
		}
	}
	if len(sources) > 0 {
		return sources[0], true
	}
	return jellyfin.MediaSourceInfo{}, false
}
