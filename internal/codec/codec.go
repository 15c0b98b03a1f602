// Package codec enumerates the decoders available on the host and normalizes
// them into the canonical codec vocabulary used by the Jellyfin API.
package codec

// ProfileLevel is one (profile, level) capability pair as reported by the
// platform, using the FFmpeg numeric constants for both values.
type ProfileLevel struct {
	Profile int
	Level   int
}

// Decoder is a raw capability record for a single decoder as reported by a
// CapabilityProvider, before translation into the canonical vocabulary.
type Decoder struct {
	MimeType      string
	ProfileLevels []ProfileLevel
	MaxBitrate    int
	MaxChannels   int
	MaxSampleRate int // 0 when the platform does not report it
}

// VideoCodec describes one canonical video codec supported by the device.
type VideoCodec struct {
	Name       string
	MimeType   string
	Profiles   map[string]struct{}
	Levels     map[int]struct{}
	MaxBitrate int
}

// AudioCodec describes one canonical audio codec supported by the device.
type AudioCodec struct {
	Name          string
	MimeType      string
	Profiles      map[string]struct{}
	MaxBitrate    int
	MaxChannels   int
	MaxSampleRate int // 0 when unknown
}

// Merge combines two entries for the same canonical codec, discovered under
// different MIME types. Profile and level sets are unioned, numeric bounds
// take the maximum.
func (c VideoCodec) Merge(other VideoCodec) VideoCodec {
	merged := VideoCodec{
		Name:       c.Name,
		MimeType:   c.MimeType,
		Profiles:   unionStrings(c.Profiles, other.Profiles),
		Levels:     unionInts(c.Levels, other.Levels),
		MaxBitrate: maxInt(c.MaxBitrate, other.MaxBitrate),
	}
	return merged
}

// Merge combines two entries for the same canonical codec. The sample rate is
// nullable (zero); a known value always wins over an unknown one.
func (c AudioCodec) Merge(other AudioCodec) AudioCodec {
	merged := AudioCodec{
		Name:        c.Name,
		MimeType:    c.MimeType,
		Profiles:    unionStrings(c.Profiles, other.Profiles),
		MaxBitrate:  maxInt(c.MaxBitrate, other.MaxBitrate),
		MaxChannels: maxInt(c.MaxChannels, other.MaxChannels),
	}
	switch {
	case c.MaxSampleRate == 0:
		merged.MaxSampleRate = other.MaxSampleRate
	case other.MaxSampleRate == 0:
		merged.MaxSampleRate = c.MaxSampleRate
	default:
		merged.MaxSampleRate = maxInt(c.MaxSampleRate, other.MaxSampleRate)
	}
	return merged
}

// fromDecoder translates a raw decoder record into a canonical codec entry.
// Returns false if the MIME type does not map to a known codec. Unknown
// profile or level values are dropped silently; they never fail translation.
func fromDecoder(dec Decoder) (VideoCodec, AudioCodec, bool, bool) {
	if name, ok := videoCodecForMime(dec.MimeType); ok {
		v := VideoCodec{
			Name:       name,
			MimeType:   dec.MimeType,
			Profiles:   make(map[string]struct{}),
			Levels:     make(map[int]struct{}),
			MaxBitrate: dec.MaxBitrate,
		}
		for _, pl := range dec.ProfileLevels {
			if profile, ok := videoProfileName(name, pl.Profile); ok {
				v.Profiles[profile] = struct{}{}
			}
			if level, ok := videoLevel(name, pl.Level); ok {
				v.Levels[level] = struct{}{}
			}
		}
		return v, AudioCodec{}, true, false
	}
	if name, ok := audioCodecForMime(dec.MimeType); ok {
		a := AudioCodec{
			Name:          name,
			MimeType:      dec.MimeType,
			Profiles:      make(map[string]struct{}),
			MaxBitrate:    dec.MaxBitrate,
			MaxChannels:   dec.MaxChannels,
			MaxSampleRate: dec.MaxSampleRate,
		}
		for _, pl := range dec.ProfileLevels {
			if profile, ok := audioProfileName(name, pl.Profile); ok {
				a.Profiles[profile] = struct{}{}
			}
		}
		return VideoCodec{}, a, false, true
	}
	return VideoCodec{}, AudioCodec{}, false, false
}

func unionStrings(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func unionInts(a, b map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
