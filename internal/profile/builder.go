package profile

import (
	"context"
	"fmt"
	"math"
	"strings"

	"jellybridge/internal/codec"
)

const (
	profileName               = "Jellybridge"
	externalPlayerProfileName = profileName + " External Player"

	// Bitrate caps match the limits used by the first-party web client.
	maxStreamingBitrate        = 120_000_000
	maxStaticBitrate           = 100_000_000
	maxMusicTranscodingBitrate = 384_000
)

// supportedContainers lists the container formats the playback engine can
// demux. availableVideoCodecs and availableAudioCodecs are parallel arrays:
// entry i holds the codec whitelist for supportedContainers[i].
var supportedContainers = []string{
	"mp4", "fmp4", "webm", "mkv", "mp3", "ogg", "wav", "mpegts", "flv", "aac", "flac", "3gp",
}

var availableVideoCodecs = [][]string{
	{"mpeg1video", "mpeg2video", "h263", "mpeg4", "h264", "hevc", "av1", "vp9"}, // mp4
	{"mpeg1video", "mpeg2video", "h263", "mpeg4", "h264", "hevc", "av1", "vp9"}, // fmp4
	{"vp8", "vp9", "av1"}, // webm
	{"mpeg1video", "mpeg2video", "h263", "mpeg4", "h264", "hevc", "av1", "vp8", "vp9"}, // mkv
	{},                                                    // mp3
	{},                                                    // ogg
	{},                                                    // wav
	{"mpeg1video", "mpeg2video", "mpeg4", "h264", "hevc"}, // mpegts
	{"mpeg4", "h264"},                                     // flv
	{},                                                    // aac
	{},                                                    // flac
	{"h263", "mpeg4", "h264", "hevc"},                     // 3gp
}

// pcmCodecs are supported by the playback engine's bundled decoders.
var pcmCodecs = []string{
	"pcm_s8", "pcm_s16be", "pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_f32le", "pcm_alaw", "pcm_mulaw",
}

var mkvAudioCodecs = concat(pcmCodecs,
	"mp1", "mp2", "mp3", "aac", "vorbis", "opus", "flac", "alac", "ac3", "eac3", "dts", "mlp", "truehd")

var mpegtsAudioCodecs = concat(pcmCodecs,
	"mp1", "mp2", "mp3", "aac", "ac3", "eac3", "dts", "mlp", "truehd")

var availableAudioCodecs = [][]string{
	{"mp1", "mp2", "mp3", "aac", "alac", "ac3", "opus"}, // mp4
	{"mp3", "aac", "ac3", "eac3"},                       // fmp4
	{"vorbis", "opus"},                                  // webm
	mkvAudioCodecs,                                      // mkv
	{"mp3"},                                             // mp3
	{"vorbis", "opus", "flac"},                          // ogg
	pcmCodecs,                                           // wav
	mpegtsAudioCodecs,                                   // mpegts
	{"mp3", "aac"},                                      // flv
	{"aac"},                                             // aac
	{"flac"},                                            // flac
	{"3gpp", "aac", "flac"},                             // 3gp
}

// forcedAudioCodecs are always advertised regardless of detection, because
// they are guaranteed by the playback engine's software decoders.
var forcedAudioCodecs = concat(pcmCodecs, "alac", "aac", "ac3", "eac3", "dts", "mlp", "truehd")

var (
	embeddedSubtitleFormats = []string{"dvbsub", "pgssub", "srt", "subrip", "ttml"}
	externalSubtitleFormats = []string{"srt", "subrip", "ttml", "vtt", "webvtt"}
	ssaSubtitleFormats      = []string{"ssa", "ass"}

	externalPlayerSubtitleFormats = []string{
		"ass", "dvbsub", "pgssub", "srt", "ssa", "subrip", "ttml", "vtt", "webvtt",
	}
)

// Options vary the built profile per session.
type Options struct {
	// DirectPlayAss advertises SSA/ASS subtitles for direct play instead of
	// forcing the server to burn them in.
	DirectPlayAss bool
}

// Builder derives device profiles from the host's codec inventory and the
// static container compatibility matrix.
type Builder struct {
	inventory *codec.Inventory
}

// NewBuilder panics if the compatibility matrix is misconfigured; a length
// mismatch between the container list and the codec arrays is a programming
// error, not a runtime condition.
func NewBuilder(inventory *codec.Inventory) *Builder {
	if len(supportedContainers) != len(availableVideoCodecs) || len(supportedContainers) != len(availableAudioCodecs) {
		panic(fmt.Sprintf(
			"container matrix mismatch: %d containers, %d video codec lists, %d audio codec lists",
			len(supportedContainers), len(availableVideoCodecs), len(availableAudioCodecs),
		))
	}
	return &Builder{inventory: inventory}
}

// BuildDeviceProfile enumerates the host decoders and intersects them with
// the compatibility matrix. Containers whose codec sets end up empty on both
// tracks are omitted entirely.
func (b *Builder) BuildDeviceProfile(ctx context.Context, opts Options) DeviceProfile {
	videoCodecs, audioCodecs := b.inventory.Enumerate(ctx)

	var (
		directPlayProfiles []DirectPlayProfile
		containerProfiles  []ContainerProfile
	)
	for i, container := range supportedContainers {
		supportedVideo := filter(availableVideoCodecs[i], func(name string) bool {
			_, ok := videoCodecs[name]
			return ok
		})
		supportedAudio := filter(availableAudioCodecs[i], func(name string) bool {
			if _, ok := audioCodecs[name]; ok {
				return true
			}
			return contains(forcedAudioCodecs, name)
		})

		if len(supportedVideo) > 0 {
			containerProfiles = append(containerProfiles, ContainerProfile{
				Type:       TypeVideo,
				Container:  container,
				Conditions: []ProfileCondition{},
			})
			directPlayProfiles = append(directPlayProfiles, DirectPlayProfile{
				Type:       TypeVideo,
				Container:  container,
				VideoCodec: strings.Join(supportedVideo, ","),
				AudioCodec: strings.Join(supportedAudio, ","),
			})
		}
		if len(supportedAudio) > 0 {
			containerProfiles = append(containerProfiles, ContainerProfile{
				Type:       TypeAudio,
				Container:  container,
				Conditions: []ProfileCondition{},
			})
			directPlayProfiles = append(directPlayProfiles, DirectPlayProfile{
				Type:       TypeAudio,
				Container:  container,
				AudioCodec: strings.Join(supportedAudio, ","),
			})
		}
	}

	embedded := embeddedSubtitleFormats
	external := externalSubtitleFormats
	if opts.DirectPlayAss {
		embedded = concat(embedded, ssaSubtitleFormats...)
		external = concat(external, ssaSubtitleFormats...)
	}

	return DeviceProfile{
		Name:                             profileName,
		MaxStreamingBitrate:              maxStreamingBitrate,
		MaxStaticBitrate:                 maxStaticBitrate,
		MusicStreamingTranscodingBitrate: maxMusicTranscodingBitrate,
		DirectPlayProfiles:               directPlayProfiles,
		TranscodingProfiles:              transcodingProfiles(),
		ContainerProfiles:                containerProfiles,
		CodecProfiles:                    []CodecProfile{},
		SubtitleProfiles:                 subtitleProfiles(embedded, external),
	}
}

// transcodingProfiles do not depend on device capability, only on the stream
// formats the playback engine handles when the server re-encodes.
func transcodingProfiles() []TranscodingProfile {
	mkvIndex := indexOf(supportedContainers, "mkv")
	return []TranscodingProfile{
		{
			Type:       TypeVideo,
			Container:  "ts",
			VideoCodec: "h264",
			AudioCodec: "mp1,mp2,mp3,aac,ac3,eac3,dts,mlp,truehd",
			Protocol:   ProtocolHLS,
			Context:    "Streaming",
		},
		{
			Type:       TypeVideo,
			Container:  "mkv",
			VideoCodec: "h264",
			AudioCodec: strings.Join(availableAudioCodecs[mkvIndex], ","),
			Protocol:   ProtocolHLS,
			Context:    "Streaming",
		},
		{
			Type:       TypeAudio,
			Container:  "mp3",
			VideoCodec: "",
			AudioCodec: "mp3",
			Protocol:   ProtocolHTTP,
			Context:    "Streaming",
		},
	}
}

func subtitleProfiles(embedded, external []string) []SubtitleProfile {
	profiles := make([]SubtitleProfile, 0, len(embedded)+len(external))
	for _, format := range embedded {
		profiles = append(profiles, SubtitleProfile{Format: format, Method: SubtitleEmbed})
	}
	for _, format := range external {
		profiles = append(profiles, SubtitleProfile{Format: format, Method: SubtitleExternal})
	}
	return profiles
}

// BuildExternalPlayerProfile is a permissive passthrough profile for handing
// an item to an arbitrary external application.
func (b *Builder) BuildExternalPlayerProfile() DeviceProfile {
	return DeviceProfile{
		Name:                             externalPlayerProfileName,
		MaxStreamingBitrate:              math.MaxInt32,
		MaxStaticBitrate:                 math.MaxInt32,
		MusicStreamingTranscodingBitrate: math.MaxInt32,
		DirectPlayProfiles: []DirectPlayProfile{
			{Type: TypeVideo, Container: ""},
			{Type: TypeAudio, Container: ""},
		},
		TranscodingProfiles: []TranscodingProfile{},
		ContainerProfiles:   []ContainerProfile{},
		CodecProfiles:       []CodecProfile{},
		SubtitleProfiles: subtitleProfiles(
			externalPlayerSubtitleFormats,
			externalPlayerSubtitleFormats,
		),
	}
}

func filter(values []string, keep func(string) bool) []string {
	var out []string
	for _, v := range values {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

func concat(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}
