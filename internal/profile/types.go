// Package profile builds the declarative device capability documents sent to
// the server to negotiate the play method.
package profile

// ProfileType distinguishes video and audio entries in a device profile.
type ProfileType string

const (
	TypeVideo ProfileType = "Video"
	TypeAudio ProfileType = "Audio"
)

// SubtitleDeliveryMethod is how a subtitle stream reaches the client.
type SubtitleDeliveryMethod string

const (
	SubtitleEmbed    SubtitleDeliveryMethod = "Embed"
	SubtitleExternal SubtitleDeliveryMethod = "External"
	SubtitleEncode   SubtitleDeliveryMethod = "Encode"
)

// StreamProtocol is the transport for transcoded streams.
type StreamProtocol string

const (
	ProtocolHLS  StreamProtocol = "hls"
	ProtocolHTTP StreamProtocol = "http"
)

// DeviceProfile is the capability document described by the server API.
// Field names follow the server's JSON dialect.
type DeviceProfile struct {
	Name                             string               `json:"Name"`
	MaxStreamingBitrate              int                  `json:"MaxStreamingBitrate"`
	MaxStaticBitrate                 int                  `json:"MaxStaticBitrate"`
	MusicStreamingTranscodingBitrate int                  `json:"MusicStreamingTranscodingBitrate"`
	DirectPlayProfiles               []DirectPlayProfile  `json:"DirectPlayProfiles"`
	TranscodingProfiles              []TranscodingProfile `json:"TranscodingProfiles"`
	ContainerProfiles                []ContainerProfile   `json:"ContainerProfiles"`
	CodecProfiles                    []CodecProfile       `json:"CodecProfiles"`
	SubtitleProfiles                 []SubtitleProfile    `json:"SubtitleProfiles"`
}

// DirectPlayProfile advertises a container with the codecs the client can
// decode natively. Codec lists are comma-joined.
type DirectPlayProfile struct {
	Type       ProfileType `json:"Type"`
	Container  string      `json:"Container"`
	VideoCodec string      `json:"VideoCodec,omitempty"`
	AudioCodec string      `json:"AudioCodec,omitempty"`
}

type ContainerProfile struct {
	Type       ProfileType        `json:"Type"`
	Container  string             `json:"Container"`
	Conditions []ProfileCondition `json:"Conditions"`
}

type CodecProfile struct {
	Type       ProfileType        `json:"Type"`
	Codec      string             `json:"Codec"`
	Conditions []ProfileCondition `json:"Conditions"`
}

type ProfileCondition struct {
	Condition  string `json:"Condition"`
	Property   string `json:"Property"`
	Value      string `json:"Value"`
	IsRequired bool   `json:"IsRequired"`
}

// TranscodingProfile advertises a format the client can play when the server
// has to re-encode.
type TranscodingProfile struct {
	Type       ProfileType    `json:"Type"`
	Container  string         `json:"Container"`
	VideoCodec string         `json:"VideoCodec"`
	AudioCodec string         `json:"AudioCodec"`
	Protocol   StreamProtocol `json:"Protocol"`
	Context    string         `json:"Context"`
}

type SubtitleProfile struct {
	Format string                 `json:"Format"`
	Method SubtitleDeliveryMethod `json:"Method"`
}
