package codec

// MIME type constants for the decoder formats this client recognizes.
const (
	MimeVideoMPEG2       = "video/mpeg2"
	MimeVideoH263        = "video/3gpp"
	MimeVideoMPEG4       = "video/mp4v-es"
	MimeVideoAVC         = "video/avc"
	MimeVideoHEVC        = "video/hevc"
	MimeVideoDolbyVision = "video/dolby-vision"
	MimeVideoVP8         = "video/x-vnd.on2.vp8"
	MimeVideoVP9         = "video/x-vnd.on2.vp9"
	MimeVideoAV1         = "video/av01"

	MimeAudioAAC    = "audio/mp4a-latm"
	MimeAudioAC3    = "audio/ac3"
	MimeAudioEAC3   = "audio/eac3"
	MimeAudioAMRNB  = "audio/3gpp"
	MimeAudioAMRWB  = "audio/amr-wb"
	MimeAudioFLAC   = "audio/flac"
	MimeAudioMPEG   = "audio/mpeg"
	MimeAudioOpus   = "audio/opus"
	MimeAudioRaw    = "audio/raw"
	MimeAudioVorbis = "audio/vorbis"
	MimeAudioDTS    = "audio/vnd.dts"
)

// videoCodecForMime maps a decoder MIME type to the canonical video codec
// name used by the server. Unknown MIME types are skipped, not errors.
func videoCodecForMime(mimeType string) (string, bool) {
	switch mimeType {
	case MimeVideoMPEG2:
		return "mpeg2video", true
	case MimeVideoH263:
		return "h263", true
	case MimeVideoMPEG4:
		return "mpeg4", true
	case MimeVideoAVC:
		return "h264", true
	case MimeVideoHEVC, MimeVideoDolbyVision:
		return "hevc", true
	case MimeVideoVP8:
		return "vp8", true
	case MimeVideoVP9:
		return "vp9", true
	case MimeVideoAV1:
		return "av1", true
	default:
		return "", false
	}
}

func audioCodecForMime(mimeType string) (string, bool) {
	switch mimeType {
	case MimeAudioAAC:
		return "aac", true
	case MimeAudioAC3:
		return "ac3", true
	case MimeAudioEAC3:
		return "eac3", true
	case MimeAudioAMRNB, MimeAudioAMRWB:
		return "3gpp", true
	case MimeAudioFLAC:
		return "flac", true
	case MimeAudioMPEG:
		return "mp3", true
	case MimeAudioOpus:
		return "opus", true
	case MimeAudioRaw:
		return "raw", true
	case MimeAudioVorbis:
		return "vorbis", true
	case MimeAudioDTS:
		return "dts", true
	default:
		return "", false
	}
}

// Profile constants follow the FFmpeg AV_PROFILE_* numeric vocabulary.
var videoProfiles = map[string]map[int]string{
	"mpeg2video": {
		0: "422 profile",
		1: "high profile",
		2: "spatial profile",
		3: "snr profile",
		4: "main profile",
		5: "simple profile",
	},
	"h263": {
		0: "baseline",
	},
	"mpeg4": {
		0:  "simple profile",
		1:  "simple scalable profile",
		2:  "core profile",
		3:  "main profile",
		4:  "nbit profile",
		5:  "scalable texture profile",
		6:  "simple face profile",
		7:  "basic animated profile",
		8:  "hybrid profile",
		9:  "advanced realtime profile",
		10: "core scalable profile",
		11: "advanced coding profile",
		12: "advanced core profile",
		15: "advanced simple profile",
	},
	"h264": {
		66:  "baseline",
		578: "constrained baseline",
		77:  "main",
		88:  "extended",
		100: "high",
		110: "high 10",
		122: "high 422",
		244: "high 444",
	},
	"hevc": {
		1: "Main",
		2: "Main 10",
		3: "Main Still",
	},
	"vp8": {
		0: "main",
	},
	"vp9": {
		0: "Profile 0",
		1: "Profile 1",
		2: "Profile 2",
		3: "Profile 3",
	},
	"av1": {
		0: "Main",
		1: "High",
		2: "Professional",
	},
}

// videoLevels lists the level values the server understands, per codec.
// Codecs absent from this table report no levels (the server only handles
// numeric levels, so symbolic-only schemes like MPEG-2 are omitted).
var videoLevels = map[string]map[int]struct{}{
	"h263":  intSet(10, 20, 30, 40, 45, 50, 60, 70),
	"mpeg4": intSet(0, 1, 2, 3, 4, 5),
	"h264":  intSet(10, 11, 12, 13, 20, 21, 22, 30, 31, 32, 40, 41, 42, 50, 51, 52, 60, 61, 62),
	"hevc":  intSet(30, 60, 63, 90, 93, 120, 123, 150, 153, 156, 180, 183, 186),
	"vp9":   intSet(10, 11, 20, 21, 30, 31, 40, 41, 50, 51, 52, 60, 61, 62),
	"av1": intSet(
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11,
		12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23,
	),
}

var audioProfiles = map[string]map[int]string{
	"aac": {
		0:  "Main",
		1:  "LC",
		2:  "SSR",
		3:  "LTP",
		4:  "HE-AAC",
		22: "LD",
		28: "HE-AACv2",
		38: "ELD",
	},
	"dts": {
		20: "DTS",
		30: "DTS-ES",
		40: "DTS 96/24",
		50: "DTS-HD HRA",
		60: "DTS-HD MA",
		70: "DTS Express",
	},
}

// videoProfileName translates a numeric profile into the server's profile
// string. Unknown values report ok=false and are dropped by the caller.
func videoProfileName(codec string, profile int) (string, bool) {
	name, ok := videoProfiles[codec][profile]
	return name, ok
}

func videoLevel(codec string, level int) (int, bool) {
	_, ok := videoLevels[codec][level]
	return level, ok
}

func audioProfileName(codec string, profile int) (string, bool) {
	name, ok := audioProfiles[codec][profile]
	return name, ok
}

func intSet(values ...int) map[int]struct{} {
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
