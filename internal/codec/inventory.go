package codec

import (
	"context"

	"jellybridge/internal/log"
)

// CapabilityProvider reports the decoders available on the host. The
// production implementation probes ffmpeg; tests use a Static provider.
type CapabilityProvider interface {
	Decoders(ctx context.Context) ([]Decoder, error)
}

// Static is a fixed-fixture provider.
type Static struct {
	Entries []Decoder
}

func (s Static) Decoders(context.Context) ([]Decoder, error) {
	return s.Entries, nil
}

// Inventory builds the canonical codec maps from a capability provider.
type Inventory struct {
	provider CapabilityProvider
}

func NewInventory(provider CapabilityProvider) *Inventory {
	return &Inventory{provider: provider}
}

// Enumerate scans the host decoders and returns one entry per canonical codec
// name and kind. Entries for the same name discovered under multiple MIME
// types are merged. Enumeration never fails: a provider error degrades to an
// empty result, and unrecognized capability data is dropped entry by entry.
func (inv *Inventory) Enumerate(ctx context.Context) (map[string]VideoCodec, map[string]AudioCodec) {
	video := make(map[string]VideoCodec)
	audio := make(map[string]AudioCodec)

	decoders, err := inv.provider.Decoders(ctx)
	if err != nil {
		logger := log.WithComponent("codec")
		logger.Warn().Err(err).Msg("decoder enumeration unavailable")
		return video, audio
	}

	for _, dec := range decoders {
		v, a, isVideo, isAudio := fromDecoder(dec)
		switch {
		case isVideo:
			if existing, ok := video[v.Name]; ok {
				video[v.Name] = existing.Merge(v)
			} else {
				video[v.Name] = v
			}
		case isAudio:
			if existing, ok := audio[a.Name]; ok {
				audio[a.Name] = existing.Merge(a)
			} else {
				audio[a.Name] = a
			}
		}
	}
	return video, audio
}
