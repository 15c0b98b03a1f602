package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jellybridge/internal/codec"
	"jellybridge/internal/jellyfin"
	"jellybridge/internal/profile"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls []ResolveOptions
	items []uuid.UUID
	info  func(itemID uuid.UUID) jellyfin.MediaSourceInfo
	err   error

	// blockOn makes resolutions of that item park until release is closed,
	// signalling entered first.
	blockOn uuid.UUID
	entered chan struct{}
	release chan struct{}
}

func (f *fakeResolver) ResolveMediaSource(ctx context.Context, itemID uuid.UUID, deviceProfile *profile.DeviceProfile, opts ResolveOptions) (*MediaSource, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.items = append(f.items, itemID)
	f.mu.Unlock()
	if itemID == f.blockOn && f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return NewMediaSource(itemID, nil, f.info(itemID), "sess-"+itemID.String()[:8], SourceOptions{
		MaxStreamingBitrate: opts.MaxStreamingBitrate,
		StartTimeTicks:      opts.StartTimeTicks,
		AudioStreamIndex:    opts.AudioStreamIndex,
		SubtitleStreamIndex: opts.SubtitleStreamIndex,
	})
}

func (f *fakeResolver) resolveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeEngine struct {
	mu            sync.Mutex
	prepared      []StreamSource
	startMs       []int64
	playWhenReady []bool
	playing       bool
	positionMs    int64
	state         State
}

func (e *fakeEngine) Prepare(source StreamSource, startPositionMs int64, playWhenReady bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prepared = append(e.prepared, source)
	e.startMs = append(e.startMs, startPositionMs)
	e.playWhenReady = append(e.playWhenReady, playWhenReady)
	e.positionMs = startPositionMs
	e.playing = playWhenReady
	e.state = StateReady
	return nil
}

func (e *fakeEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

func (e *fakeEngine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
}

func (e *fakeEngine) SeekTo(positionMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positionMs = positionMs
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.playing = false
}

func (e *fakeEngine) PositionMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionMs
}

func (e *fakeEngine) BufferedMs() int64 { return 0 }
func (e *fakeEngine) DurationMs() int64 { return 0 }

func (e *fakeEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *fakeEngine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeEngine) lastPrepared() StreamSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prepared[len(e.prepared)-1]
}

func (e *fakeEngine) prepareCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.prepared)
}

type fakeGateway struct {
	stopped chan string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{stopped: make(chan string, 4)}
}

func (g *fakeGateway) VideoStreamURL(itemID uuid.UUID, mediaSourceID, playSessionID string) string {
	return "http://gw/Videos/" + itemID.String() + "/stream"
}

func (g *fakeGateway) VideoStreamByContainerURL(itemID uuid.UUID, container, mediaSourceID, playSessionID string) string {
	return "http://gw/Videos/" + itemID.String() + "/stream." + container
}

func (g *fakeGateway) ResolveURL(path string) string {
	return "http://gw" + path
}

func (g *fakeGateway) StopTranscoding(ctx context.Context, playSessionID string) error {
	g.stopped <- playSessionID
	return nil
}

type fakeReporter struct {
	mu      sync.Mutex
	started chan *MediaSource
	stopped int
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{started: make(chan *MediaSource, 4)}
}

func (r *fakeReporter) ReportStart(ctx context.Context, source *MediaSource) {
	r.started <- source
}

// waitStart blocks until a start report arrives; the queue dispatches them
// off the calling goroutine.
func (r *fakeReporter) waitStart(t *testing.T) *MediaSource {
	t.Helper()
	select {
	case source := <-r.started:
		return source
	case <-time.After(2 * time.Second):
		t.Fatal("playback start was not reported")
		return nil
	}
}

func (r *fakeReporter) ReportStopped(ctx context.Context, source *MediaSource, positionTicks int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
}

func directPlayInfo(uuid.UUID) jellyfin.MediaSourceInfo {
	return testSourceInfo()
}

func transcodeInfo(uuid.UUID) jellyfin.MediaSourceInfo {
	info := testSourceInfo()
	info.SupportsDirectPlay = false
	info.SupportsDirectStream = false
	info.SupportsTranscoding = true
	info.TranscodingURL = "/videos/hls/main.m3u8"
	info.TranscodingSubProtocol = "hls"
	return info
}

type queueFixture struct {
	queue    *QueueManager
	resolver *fakeResolver
	engine   *fakeEngine
	gateway  *fakeGateway
	reporter *fakeReporter
}

func newQueueFixture(info func(uuid.UUID) jellyfin.MediaSourceInfo) *queueFixture {
	f := &queueFixture{
		resolver: &fakeResolver{info: info},
		engine:   &fakeEngine{},
		gateway:  newFakeGateway(),
		reporter: newFakeReporter(),
	}
	builder := profile.NewBuilder(codec.NewInventory(codec.Static{}))
	f.queue = NewQueueManager(f.resolver, builder, f.gateway, f.engine, WithReporter(f.reporter))
	return f
}

func playOptions(ids ...uuid.UUID) PlayOptions {
	return PlayOptions{IDs: ids}
}

func TestStartPlaybackResolvesAndPrepares(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	a, b := uuid.New(), uuid.New()

	err := f.queue.StartPlayback(context.Background(), playOptions(a, b), true)
	require.NoError(t, err)

	require.Equal(t, 1, f.resolver.resolveCount())
	assert.Equal(t, a, f.resolver.items[0])

	stream := f.engine.lastPrepared()
	assert.Equal(t, "http://gw/Videos/"+a.String()+"/stream", stream.URL)
	assert.Equal(t, Progressive, stream.Protocol)
	require.Len(t, stream.Subtitles, 1)
	assert.Equal(t, "http://gw/subs/3.srt", stream.Subtitles[0].URL)

	assert.True(t, f.queue.HasNext())
	assert.False(t, f.queue.HasPrevious())
	assert.Equal(t, a, f.reporter.waitStart(t).ItemID)
}

func TestStartPlaybackIdempotent(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	opts := playOptions(uuid.New())

	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))

	assert.Equal(t, 1, f.resolver.resolveCount(), "duplicate intent must not resolve again")
	f.reporter.waitStart(t)
	select {
	case <-f.reporter.started:
		t.Fatal("duplicate intent must not report start again")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartPlaybackDiscardsSupersededResolution(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	a, b := uuid.New(), uuid.New()
	f.resolver.blockOn = a
	f.resolver.entered = make(chan struct{})
	f.resolver.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- f.queue.StartPlayback(context.Background(), playOptions(a), true) }()
	<-f.resolver.entered

	// A newer intent lands while the first resolution is still in flight.
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(b), true))
	close(f.resolver.release)
	require.NoError(t, <-done)

	require.Equal(t, 1, f.engine.prepareCount(), "stale resolution must not reach the engine")
	source := f.queue.CurrentSource()
	require.NotNil(t, source)
	assert.Equal(t, b, source.ItemID)

	// The stale session must not have clobbered the applied options either:
	// repeating the newer intent stays a no-op.
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(b), true))
	assert.Equal(t, 2, f.resolver.resolveCount())
}

func TestStopDiscardsInFlightResolution(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	a := uuid.New()
	f.resolver.blockOn = a
	f.resolver.entered = make(chan struct{})
	f.resolver.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- f.queue.StartPlayback(context.Background(), playOptions(a), true) }()
	<-f.resolver.entered

	f.queue.Stop(context.Background())
	close(f.resolver.release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, f.engine.prepareCount(), "stopped session must not be resurrected")
	assert.Nil(t, f.queue.CurrentSource())

	// The stopped session keeps no options: the same intent resolves afresh.
	f.resolver.blockOn = uuid.UUID{}
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(a), true))
	assert.Equal(t, 2, f.resolver.resolveCount())
	assert.Equal(t, 1, f.engine.prepareCount())
}

func TestStartPlaybackInvalidOptions(t *testing.T) {
	f := newQueueFixture(directPlayInfo)

	err := f.queue.StartPlayback(context.Background(), PlayOptions{}, true)
	var playbackErr *Error
	require.ErrorAs(t, err, &playbackErr)
	assert.Equal(t, InvalidPlayOptions, playbackErr.Kind)
	assert.Equal(t, 0, f.resolver.resolveCount())
}

func TestStartPlaybackMediaSourceIDTarget(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	target := uuid.New()

	opts := PlayOptions{MediaSourceID: target.String()}
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))
	assert.Equal(t, target, f.resolver.items[0])
}

func TestStartPlaybackResolveFailureLeavesQueueUntouched(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	f.resolver.err = NewError(NetworkFailure, errors.New("connection refused"))
	opts := playOptions(uuid.New())

	err := f.queue.StartPlayback(context.Background(), opts, true)
	require.Error(t, err)
	assert.Nil(t, f.queue.CurrentSource())
	assert.Empty(t, f.engine.prepared)

	// The failed options are not remembered: a retry resolves again.
	f.resolver.err = nil
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))
	assert.Equal(t, 2, f.resolver.resolveCount())
}

func TestNextResolvesStubWithBareProfile(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	bitrate := 4_000_000
	opts := playOptions(a, b, c)
	opts.MaxStreamingBitrate = &bitrate
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))

	moved, err := f.queue.Next(context.Background())
	require.NoError(t, err)
	require.True(t, moved)

	require.Equal(t, 2, f.resolver.resolveCount())
	assert.Equal(t, b, f.resolver.items[1])
	// Adjacent items resolve fresh: no carried-over constraints.
	assert.Equal(t, ResolveOptions{}, f.resolver.calls[1])
	assert.True(t, f.queue.HasPrevious())
	assert.True(t, f.queue.HasNext())

	moved, err = f.queue.Next(context.Background())
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, c, f.resolver.items[2])
	assert.False(t, f.queue.HasNext())

	moved, err = f.queue.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, moved, "exhausted queue must not advance")
	assert.Equal(t, 3, f.resolver.resolveCount())
}

func TestPreviousResolvesTailOfStub(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	opts := playOptions(a, b, c)
	opts.StartIndex = 2
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))
	require.True(t, f.queue.HasPrevious())

	moved, err := f.queue.Previous(context.Background())
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, b, f.resolver.items[1], "previous must take the nearest id")
	assert.True(t, f.queue.HasPrevious())
	assert.True(t, f.queue.HasNext())
}

func TestPreviousReusesLoadedItem(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(a, b), true))
	moved, err := f.queue.Next(context.Background())
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, 2, f.resolver.resolveCount())

	moved, err = f.queue.Previous(context.Background())
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, 2, f.resolver.resolveCount(), "loaded neighbor must not resolve again")
	assert.Equal(t, a, f.queue.CurrentSource().ItemID)
}

func TestChangeBitrateRenegotiatesAtPosition(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	a := uuid.New()

	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(a), true))
	f.engine.SeekTo(60_000)

	require.NoError(t, f.queue.ChangeBitrate(context.Background(), 8_000_000))

	require.Equal(t, 2, f.resolver.resolveCount())
	renegotiated := f.resolver.calls[1]
	require.NotNil(t, renegotiated.MaxStreamingBitrate)
	assert.Equal(t, 8_000_000, *renegotiated.MaxStreamingBitrate)
	require.NotNil(t, renegotiated.StartTimeTicks)
	assert.Equal(t, int64(60_000)*TicksPerMillisecond, *renegotiated.StartTimeTicks)

	// Playback resumes where it stopped, in the playing state it had.
	assert.Equal(t, int64(60_000), f.engine.startMs[1])
	assert.True(t, f.engine.playWhenReady[1])
}

func TestChangeBitrateKeepsPausedState(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(uuid.New()), true))
	f.engine.Pause()

	require.NoError(t, f.queue.ChangeBitrate(context.Background(), 8_000_000))
	assert.False(t, f.engine.playWhenReady[1], "paused session must stay paused")
}

func TestChangeBitrateWithoutSession(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	require.NoError(t, f.queue.ChangeBitrate(context.Background(), 8_000_000))
	assert.Equal(t, 0, f.resolver.resolveCount())
}

func TestChangeBitrateSameValueNoop(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	bitrate := 8_000_000
	opts := playOptions(uuid.New())
	opts.MaxStreamingBitrate = &bitrate
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))

	require.NoError(t, f.queue.ChangeBitrate(context.Background(), 8_000_000))
	assert.Equal(t, 1, f.resolver.resolveCount())
}

func TestTranscodeStoppedOnReplacement(t *testing.T) {
	f := newQueueFixture(transcodeInfo)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(a), true))
	oldSession := f.queue.CurrentSource().PlaySessionID

	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(b), true))

	select {
	case stopped := <-f.gateway.stopped:
		assert.Equal(t, oldSession, stopped)
	case <-time.After(2 * time.Second):
		t.Fatal("transcode of replaced source was not stopped")
	}
}

func TestPrepareStreamsTranscode(t *testing.T) {
	f := newQueueFixture(transcodeInfo)

	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(uuid.New()), true))
	stream := f.engine.lastPrepared()
	assert.Equal(t, "http://gw/videos/hls/main.m3u8", stream.URL)
	assert.Equal(t, HLS, stream.Protocol)
}

func TestPrepareStreamsTranscodeRequiresHLS(t *testing.T) {
	f := newQueueFixture(func(id uuid.UUID) jellyfin.MediaSourceInfo {
		info := transcodeInfo(id)
		info.TranscodingSubProtocol = "http"
		return info
	})

	err := f.queue.StartPlayback(context.Background(), playOptions(uuid.New()), true)
	var playbackErr *Error
	require.ErrorAs(t, err, &playbackErr)
	assert.Equal(t, UnsupportedContent, playbackErr.Kind)
	assert.Nil(t, f.queue.CurrentSource())
}

func TestPrepareStreamsDirectStream(t *testing.T) {
	f := newQueueFixture(func(id uuid.UUID) jellyfin.MediaSourceInfo {
		info := testSourceInfo()
		info.SupportsDirectPlay = false
		info.SupportsDirectStream = true
		return info
	})
	a := uuid.New()

	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(a), true))
	stream := f.engine.lastPrepared()
	assert.Equal(t, "http://gw/Videos/"+a.String()+"/stream.mkv", stream.URL)
	assert.Equal(t, Progressive, stream.Protocol)
}

func TestSelectAudioTrackEmbeddedSwapsInPlace(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(uuid.New()), true))

	selected, err := f.queue.SelectAudioTrack(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, selected)

	assert.Equal(t, 1, f.resolver.resolveCount(), "embedded selection must not renegotiate")
	require.NotNil(t, f.queue.CurrentSource().SelectedAudioStream)
	assert.Equal(t, 2, f.queue.CurrentSource().SelectedAudioStream.Index)
}

func TestSelectAudioTrackUnknownIndex(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(uuid.New()), true))

	selected, err := f.queue.SelectAudioTrack(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, selected)
}

func TestSelectAudioTrackTranscodeRenegotiates(t *testing.T) {
	f := newQueueFixture(transcodeInfo)
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(uuid.New()), true))

	selected, err := f.queue.SelectAudioTrack(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, selected)

	require.Equal(t, 2, f.resolver.resolveCount())
	require.NotNil(t, f.resolver.calls[1].AudioStreamIndex)
	assert.Equal(t, 2, *f.resolver.calls[1].AudioStreamIndex)
}

func TestSelectSubtitleTrackDisable(t *testing.T) {
	f := newQueueFixture(func(id uuid.UUID) jellyfin.MediaSourceInfo {
		info := testSourceInfo()
		defaultSub := 4
		info.DefaultSubtitleStreamIndex = &defaultSub
		return info
	})
	require.NoError(t, f.queue.StartPlayback(context.Background(), playOptions(uuid.New()), true))
	require.NotNil(t, f.queue.CurrentSource().SelectedSubtitleStream)

	selected, err := f.queue.SelectSubtitleTrack(context.Background(), -1)
	require.NoError(t, err)
	require.True(t, selected)
	assert.Nil(t, f.queue.CurrentSource().SelectedSubtitleStream)
	assert.Equal(t, 1, f.resolver.resolveCount())
}

func TestStopClearsSession(t *testing.T) {
	f := newQueueFixture(directPlayInfo)
	opts := playOptions(uuid.New())
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))

	f.queue.Stop(context.Background())
	assert.Nil(t, f.queue.CurrentSource())
	assert.Equal(t, StateIdle, f.engine.State())

	// A stopped session forgets its options: the same intent starts fresh.
	require.NoError(t, f.queue.StartPlayback(context.Background(), opts, true))
	assert.Equal(t, 2, f.resolver.resolveCount())
}
