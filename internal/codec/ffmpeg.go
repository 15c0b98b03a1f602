package codec

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Software decoding is not meaningfully bitrate-bound, so probed decoders
// report generous fixed bounds instead of hardware register values.
const (
	softwareVideoMaxBitrate = 120_000_000
	softwareAudioMaxBitrate = 1_536_000
	softwareMaxChannels     = 8
	softwareMaxSampleRate   = 192_000
)

// FFmpeg probes the decoders of a local ffmpeg installation.
type FFmpeg struct {
	// Binary is the ffmpeg executable to invoke. Empty means "ffmpeg" on PATH.
	Binary string
}

func (f FFmpeg) Decoders(ctx context.Context) ([]Decoder, error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, binary, "-hide_banner", "-decoders")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("listing decoders: %w", err)
	}
	return parseDecoderList(output), nil
}

// parseDecoderList reads `ffmpeg -decoders` output. Lines before the "------"
// separator are headers; each entry line is "<flags> <name> <description>",
// where the first flag character is V (video), A (audio) or S (subtitle).
// Unrecognized decoder names are skipped.
func parseDecoderList(output []byte) []Decoder {
	var decoders []Decoder
	scanner := bufio.NewScanner(bytes.NewReader(output))
	seenSeparator := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !seenSeparator {
			if strings.HasPrefix(line, "---") {
				seenSeparator = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) < 1 {
			continue
		}
		kind := fields[0][0]
		if kind != 'V' && kind != 'A' {
			continue
		}
		if dec, ok := decoderForName(fields[1]); ok {
			decoders = append(decoders, dec)
		}
	}
	return decoders
}

// decoderForName builds the capability record for a known ffmpeg decoder.
// Software decoders accept every profile of their codec, so the profile and
// level sets come from the full translation tables.
func decoderForName(name string) (Decoder, bool) {
	mimeType, ok := decoderMimeTypes[name]
	if !ok {
		return Decoder{}, false
	}
	if codec, isVideo := videoCodecForMime(mimeType); isVideo {
		return Decoder{
			MimeType:      mimeType,
			ProfileLevels: allProfileLevels(codec),
			MaxBitrate:    softwareVideoMaxBitrate,
		}, true
	}
	codec, _ := audioCodecForMime(mimeType)
	return Decoder{
		MimeType:      mimeType,
		ProfileLevels: allAudioProfiles(codec),
		MaxBitrate:    softwareAudioMaxBitrate,
		MaxChannels:   softwareMaxChannels,
		MaxSampleRate: softwareMaxSampleRate,
	}, true
}

// decoderMimeTypes maps ffmpeg decoder names (including the common external
// library aliases) to the MIME vocabulary of this package.
var decoderMimeTypes = map[string]string{
	"mpeg2video": MimeVideoMPEG2,
	"h263":       MimeVideoH263,
	"mpeg4":      MimeVideoMPEG4,
	"h264":       MimeVideoAVC,
	"hevc":       MimeVideoHEVC,
	"vp8":        MimeVideoVP8,
	"libvpx":     MimeVideoVP8,
	"vp9":        MimeVideoVP9,
	"libvpx-vp9": MimeVideoVP9,
	"av1":        MimeVideoAV1,
	"libdav1d":   MimeVideoAV1,
	"libaom-av1": MimeVideoAV1,

	"aac":       MimeAudioAAC,
	"ac3":       MimeAudioAC3,
	"eac3":      MimeAudioEAC3,
	"amrnb":     MimeAudioAMRNB,
	"amrwb":     MimeAudioAMRWB,
	"flac":      MimeAudioFLAC,
	"mp3":       MimeAudioMPEG,
	"mp3float":  MimeAudioMPEG,
	"opus":      MimeAudioOpus,
	"libopus":   MimeAudioOpus,
	"vorbis":    MimeAudioVorbis,
	"libvorbis": MimeAudioVorbis,
	"dca":       MimeAudioDTS,
	"pcm_s16le": MimeAudioRaw,
}

func allProfileLevels(codec string) []ProfileLevel {
	var pairs []ProfileLevel
	for profile := range videoProfiles[codec] {
		pairs = append(pairs, ProfileLevel{Profile: profile, Level: -1})
	}
	for level := range videoLevels[codec] {
		pairs = append(pairs, ProfileLevel{Profile: -1, Level: level})
	}
	return pairs
}

func allAudioProfiles(codec string) []ProfileLevel {
	var pairs []ProfileLevel
	for profile := range audioProfiles[codec] {
		pairs = append(pairs, ProfileLevel{Profile: profile, Level: -1})
	}
	return pairs
}
