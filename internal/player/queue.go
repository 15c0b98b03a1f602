package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jellybridge/internal/jellyfin"
	"jellybridge/internal/log"
	"jellybridge/internal/profile"
)

// MediaResolver negotiates a playable source for one item.
type MediaResolver interface {
	ResolveMediaSource(ctx context.Context, itemID uuid.UUID, deviceProfile *profile.DeviceProfile, opts ResolveOptions) (*MediaSource, error)
}

// StreamGateway constructs stream URLs and tears down server-side resources.
// Implemented by jellyfin.Client.
type StreamGateway interface {
	VideoStreamURL(itemID uuid.UUID, mediaSourceID, playSessionID string) string
	VideoStreamByContainerURL(itemID uuid.UUID, container, mediaSourceID, playSessionID string) string
	ResolveURL(path string) string
	StopTranscoding(ctx context.Context, playSessionID string) error
}

// PlaybackReporter pushes playstate changes to the server. Implementations
// must swallow failures; reporting never interrupts playback.
type PlaybackReporter interface {
	ReportStart(ctx context.Context, source *MediaSource)
	ReportStopped(ctx context.Context, source *MediaSource, positionTicks int64)
}

// QueueItem is either a loaded item or a stub of unresolved item ids. The
// queue forms a doubly linked, lazily materialized chain; only the current
// item and its immediate neighbors ever need to be loaded.
type QueueItem struct {
	loaded *LoadedItem
	ids    []uuid.UUID
}

// LoadedItem holds a resolved media source and its prepared stream source.
type LoadedItem struct {
	Source   *MediaSource
	Stream   StreamSource
	Previous *QueueItem
	Next     *QueueItem
}

func LoadedQueueItem(item *LoadedItem) *QueueItem {
	return &QueueItem{loaded: item}
}

func StubQueueItem(ids []uuid.UUID) *QueueItem {
	return &QueueItem{ids: ids}
}

// Loaded returns the loaded item, or false for a stub.
func (q *QueueItem) Loaded() (*LoadedItem, bool) {
	return q.loaded, q.loaded != nil
}

// StubIDs returns the unresolved ids of a stub item.
func (q *QueueItem) StubIDs() []uuid.UUID {
	return q.ids
}

func (q *QueueItem) hasItems() bool {
	return q != nil && (q.loaded != nil || len(q.ids) > 0)
}

// QueueManager owns the current playback queue and drives (re)resolution
// when starting, advancing or renegotiating. All mutation goes through the
// manager; results of superseded resolutions are discarded by a generation
// check before they touch shared state.
type QueueManager struct {
	resolver MediaResolver
	builder  *profile.Builder
	gateway  StreamGateway
	engine   Engine
	reporter PlaybackReporter
	profOpts profile.Options
	log      zerolog.Logger

	mu              sync.Mutex
	current         *LoadedItem
	lastPlayOptions *PlayOptions
	generation      uint64
}

type QueueOption func(*QueueManager)

func WithReporter(reporter PlaybackReporter) QueueOption {
	return func(q *QueueManager) { q.reporter = reporter }
}

func WithProfileOptions(opts profile.Options) QueueOption {
	return func(q *QueueManager) { q.profOpts = opts }
}

func NewQueueManager(resolver MediaResolver, builder *profile.Builder, gateway StreamGateway, engine Engine, opts ...QueueOption) *QueueManager {
	q := &QueueManager{
		resolver: resolver,
		builder:  builder,
		gateway:  gateway,
		engine:   engine,
		log:      log.WithComponent("queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// CurrentSource returns the media source of the current queue item, or nil.
func (q *QueueManager) CurrentSource() *MediaSource {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil
	}
	return q.current.Source
}

// HasNext reports whether advancing is possible without exhausting the queue.
func (q *QueueManager) HasNext() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil && q.current.Next.hasItems()
}

func (q *QueueManager) HasPrevious() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil && q.current.Previous.hasItems()
}

// StartPlayback begins a playback session. Byte-identical options to the
// last applied ones are a no-op: duplicate intents trigger neither a second
// resolution nor a queue mutation.
func (q *QueueManager) StartPlayback(ctx context.Context, opts PlayOptions, playWhenReady bool) error {
	q.mu.Lock()
	if q.lastPlayOptions != nil && opts.Equal(*q.lastPlayOptions) {
		q.mu.Unlock()
		return nil
	}
	itemID, err := targetItem(opts)
	if err != nil {
		q.mu.Unlock()
		return err
	}
	q.generation++
	generation := q.generation
	q.mu.Unlock()

	deviceProfile := q.builder.BuildDeviceProfile(ctx, q.profOpts)
	source, err := q.resolver.ResolveMediaSource(ctx, itemID, &deviceProfile, ResolveOptions{
		MaxStreamingBitrate: opts.MaxStreamingBitrate,
		StartTimeTicks:      opts.StartPositionTicks,
		AudioStreamIndex:    opts.AudioStreamIndex,
		SubtitleStreamIndex: opts.SubtitleStreamIndex,
	})
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if generation != q.generation {
		// Superseded by a newer intent while resolving; discard silently.
		return nil
	}

	start := opts.StartIndex
	if start < 0 || start > len(opts.IDs) {
		start = 0
	}
	previous := StubQueueItem(opts.IDs[:min(start, len(opts.IDs))])
	var nextIDs []uuid.UUID
	if start+1 < len(opts.IDs) {
		nextIDs = opts.IDs[start+1:]
	}
	next := StubQueueItem(nextIDs)

	item, err := q.newLoadedItem(source, previous, next)
	if err != nil {
		return err
	}
	applied := opts
	q.lastPlayOptions = &applied
	return q.activateLocked(item, playWhenReady)
}

// Next advances to the following queue item, resolving it first if it is
// only known by id. Adjacent items resolve against the bare device profile:
// no bitrate cap, position or track preferences carry over.
func (q *QueueManager) Next(ctx context.Context) (bool, error) {
	return q.advance(ctx, func(current *LoadedItem) *QueueItem { return current.Next }, true)
}

// Previous steps back to the preceding queue item.
func (q *QueueManager) Previous(ctx context.Context) (bool, error) {
	return q.advance(ctx, func(current *LoadedItem) *QueueItem { return current.Previous }, false)
}

func (q *QueueManager) advance(ctx context.Context, pick func(*LoadedItem) *QueueItem, forward bool) (bool, error) {
	q.mu.Lock()
	current := q.current
	if current == nil {
		q.mu.Unlock()
		return false, nil
	}
	adjacent := pick(current)
	if item, ok := adjacent.Loaded(); ok {
		defer q.mu.Unlock()
		return true, q.activateLocked(item, true)
	}

	ids := adjacent.StubIDs()
	if len(ids) == 0 {
		q.mu.Unlock()
		return false, nil
	}
	var itemID uuid.UUID
	var remaining []uuid.UUID
	if forward {
		itemID, remaining = ids[0], ids[1:]
	} else {
		itemID, remaining = ids[len(ids)-1], ids[:len(ids)-1]
	}
	q.generation++
	generation := q.generation
	q.mu.Unlock()

	deviceProfile := q.builder.BuildDeviceProfile(ctx, q.profOpts)
	source, err := q.resolver.ResolveMediaSource(ctx, itemID, &deviceProfile, ResolveOptions{})
	if err != nil {
		return false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if generation != q.generation {
		return false, nil
	}

	var item *LoadedItem
	if forward {
		item, err = q.newLoadedItem(source, LoadedQueueItem(q.current), StubQueueItem(remaining))
	} else {
		item, err = q.newLoadedItem(source, StubQueueItem(remaining), LoadedQueueItem(q.current))
	}
	if err != nil {
		return false, err
	}
	return true, q.activateLocked(item, true)
}

// ChangeBitrate renegotiates the current item under a new bitrate cap,
// resuming at the position captured from the paused player.
func (q *QueueManager) ChangeBitrate(ctx context.Context, bitrate int) error {
	q.mu.Lock()
	last := q.lastPlayOptions
	if last == nil || q.current == nil {
		q.mu.Unlock()
		return nil
	}
	if last.MaxStreamingBitrate != nil && *last.MaxStreamingBitrate == bitrate {
		q.mu.Unlock()
		return nil
	}
	opts := *last
	opts.MaxStreamingBitrate = &bitrate
	q.mu.Unlock()
	return q.restartWithOptions(ctx, opts)
}

// SelectAudioTrack selects the audio stream with the given server index.
// Transcoded and externally delivered audio need a brand-new server stream,
// so those selections renegotiate; embedded audio is swapped in place.
func (q *QueueManager) SelectAudioTrack(ctx context.Context, streamIndex int) (bool, error) {
	q.mu.Lock()
	current := q.current
	if current == nil {
		q.mu.Unlock()
		return false, nil
	}
	source := current.Source
	stream := source.AudioStreamByIndex(streamIndex)
	if stream == nil {
		q.mu.Unlock()
		return false, nil
	}
	if source.SelectedAudioStream != nil && source.SelectedAudioStream.Index == streamIndex {
		q.mu.Unlock()
		return true, nil
	}

	if source.PlayMethod == Transcode || stream.IsExternal {
		last := q.lastPlayOptions
		if last == nil {
			q.mu.Unlock()
			return false, nil
		}
		opts := *last
		opts.AudioStreamIndex = &streamIndex
		q.mu.Unlock()
		return true, q.restartWithOptions(ctx, opts)
	}

	defer q.mu.Unlock()
	selected, ok := source.SelectAudioStream(stream)
	if !ok {
		return false, nil
	}
	current.Source = selected
	return true, nil
}

// SelectSubtitleTrack selects the subtitle stream with the given server
// index; -1 disables subtitles. Transcode sources renegotiate so the server
// can re-mux; everything else is swapped in place.
func (q *QueueManager) SelectSubtitleTrack(ctx context.Context, streamIndex int) (bool, error) {
	q.mu.Lock()
	current := q.current
	if current == nil {
		q.mu.Unlock()
		return false, nil
	}
	source := current.Source

	var stream *jellyfin.MediaStream
	if streamIndex >= 0 {
		stream = source.SubtitleStreamByIndex(streamIndex)
		if stream == nil {
			q.mu.Unlock()
			return false, nil
		}
	}
	if sameSubtitleSelection(source.SelectedSubtitleStream, streamIndex) {
		q.mu.Unlock()
		return true, nil
	}

	if source.PlayMethod == Transcode {
		last := q.lastPlayOptions
		if last == nil {
			q.mu.Unlock()
			return false, nil
		}
		opts := *last
		index := streamIndex
		opts.SubtitleStreamIndex = &index
		q.mu.Unlock()
		return true, q.restartWithOptions(ctx, opts)
	}

	defer q.mu.Unlock()
	selected, ok := source.SelectSubtitleStream(stream)
	if !ok {
		return false, nil
	}
	current.Source = selected
	return true, nil
}

// Stop ends the session: playback stops, the server transcode is torn down
// and a final playstate report goes out.
func (q *QueueManager) Stop(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	// Invalidate any in-flight resolution so it cannot resurrect the
	// session, including one racing the very first activation.
	q.generation++
	q.lastPlayOptions = nil
	if q.current == nil {
		return
	}
	positionTicks := q.engine.PositionMs() * TicksPerMillisecond
	q.engine.Stop()
	q.cleanupSource(q.current.Source, positionTicks)
	q.current = nil
}

// restartWithOptions is the shared renegotiation path: capture the playing
// state, pause, read the settled position, then start over with the
// modified options. The new stream resumes where the old one stopped.
func (q *QueueManager) restartWithOptions(ctx context.Context, opts PlayOptions) error {
	playWhenReady := q.engine.Playing()
	q.engine.Pause()
	positionTicks := q.engine.PositionMs() * TicksPerMillisecond
	opts.StartPositionTicks = &positionTicks
	return q.StartPlayback(ctx, opts, playWhenReady)
}

// activateLocked swaps the current item, cleans up the one it replaces and
// hands the prepared stream source to the engine. Callers hold q.mu.
func (q *QueueManager) activateLocked(item *LoadedItem, playWhenReady bool) error {
	old := q.current
	if old != nil && old != item {
		positionTicks := q.engine.PositionMs() * TicksPerMillisecond
		q.cleanupSource(old.Source, positionTicks)
	}
	q.current = item
	if err := q.engine.Prepare(item.Stream, item.Source.StartTimeMs, playWhenReady); err != nil {
		return fmt.Errorf("preparing stream: %w", err)
	}
	q.reportStart(item.Source)
	return nil
}

// reportStart pushes the start report off the caller's goroutine. Reporting
// is a background concern and must not hold up queue operations on a slow
// server.
func (q *QueueManager) reportStart(source *MediaSource) {
	if q.reporter == nil {
		return
	}
	reportCtx := context.WithoutCancel(context.Background())
	go func() {
		ctx, cancel := context.WithTimeout(reportCtx, 10*time.Second)
		defer cancel()
		q.reporter.ReportStart(ctx, source)
	}()
}

// cleanupSource releases server resources for a replaced source. Transcoding
// sessions leak when not stopped explicitly. Runs detached: the originating
// context may already be tearing down.
func (q *QueueManager) cleanupSource(source *MediaSource, positionTicks int64) {
	cleanupCtx := context.WithoutCancel(context.Background())
	go func() {
		ctx, cancel := context.WithTimeout(cleanupCtx, 10*time.Second)
		defer cancel()
		if q.reporter != nil {
			q.reporter.ReportStopped(ctx, source, positionTicks)
		}
		if source.PlayMethod == Transcode {
			if err := q.gateway.StopTranscoding(ctx, source.PlaySessionID); err != nil {
				q.log.Warn().Err(err).Str("play_session_id", source.PlaySessionID).Msg("failed to stop transcoding")
			}
		}
	}()
}

func (q *QueueManager) newLoadedItem(source *MediaSource, previous, next *QueueItem) (*LoadedItem, error) {
	stream, err := q.prepareStreams(source)
	if err != nil {
		return nil, err
	}
	return &LoadedItem{
		Source:   source,
		Stream:   stream,
		Previous: previous,
		Next:     next,
	}, nil
}

// prepareStreams builds the stream descriptor for the engine: the primary
// media URL for the negotiated play method, merged with one sideloaded
// source per external subtitle.
func (q *QueueManager) prepareStreams(source *MediaSource) (StreamSource, error) {
	stream := StreamSource{ItemID: source.ItemID}
	info := source.SourceInfo

	switch source.PlayMethod {
	case DirectPlay:
		switch info.Protocol {
		case jellyfin.ProtocolFile:
			stream.URL = q.gateway.VideoStreamURL(source.ItemID, info.ID, source.PlaySessionID)
			stream.Protocol = Progressive
		case jellyfin.ProtocolHTTP:
			if info.Path == "" {
				return StreamSource{}, NewError(UnsupportedContent, fmt.Errorf("missing path for http source %s", info.ID))
			}
			stream.URL = info.Path
			stream.Protocol = HLS
		default:
			return StreamSource{}, NewError(UnsupportedContent, fmt.Errorf("unsupported protocol %q", info.Protocol))
		}
	case DirectStream:
		if info.Container == "" {
			return StreamSource{}, NewError(UnsupportedContent, fmt.Errorf("missing direct stream container for source %s", info.ID))
		}
		stream.URL = q.gateway.VideoStreamByContainerURL(source.ItemID, info.Container, info.ID, source.PlaySessionID)
		stream.Protocol = Progressive
	case Transcode:
		if info.TranscodingURL == "" {
			return StreamSource{}, NewError(UnsupportedContent, fmt.Errorf("missing transcoding URL for source %s", info.ID))
		}
		if info.TranscodingSubProtocol != "hls" {
			return StreamSource{}, NewError(UnsupportedContent, fmt.Errorf("unsupported transcode protocol %q", info.TranscodingSubProtocol))
		}
		stream.URL = q.gateway.ResolveURL(info.TranscodingURL)
		stream.Protocol = HLS
	}

	for _, subtitle := range source.ExternalSubtitles {
		stream.Subtitles = append(stream.Subtitles, SubtitleSource{
			Index:    subtitle.Index,
			URL:      q.gateway.ResolveURL(subtitle.DeliveryURL),
			MimeType: subtitle.MimeType,
			Language: subtitle.Language,
			Label:    subtitle.DisplayTitle,
		})
	}
	return stream, nil
}

func targetItem(opts PlayOptions) (uuid.UUID, error) {
	if opts.MediaSourceID != "" {
		if id, err := uuid.Parse(opts.MediaSourceID); err == nil {
			return id, nil
		}
	}
	if opts.StartIndex >= 0 && opts.StartIndex < len(opts.IDs) {
		return opts.IDs[opts.StartIndex], nil
	}
	return uuid.Nil, NewError(InvalidPlayOptions, nil)
}

func sameSubtitleSelection(selected *jellyfin.MediaStream, streamIndex int) bool {
	if selected == nil {
		return streamIndex < 0
	}
	return selected.Index == streamIndex
}
