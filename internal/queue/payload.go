package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"tonearm/internal/services"
)

// PayloadVersion is the schema version written into every payload.
const PayloadVersion = 1

// Kind names the type of work a job carries.
type Kind string

// KindAudioArtist resolves an artist name for one audio record.
const KindAudioArtist Kind = "audio_artist"

// AudioArtist is the body of a KindAudioArtist job.
type AudioArtist struct {
	AudioID int64  `json:"audio_id"`
	Artist  string `json:"artist"`
}

// Payload is the versioned, tagged job body. Exactly one body field matching
// Kind is set.
type Payload struct {
	Version     int          `json:"v"`
	Kind        Kind         `json:"kind"`
	AudioArtist *AudioArtist `json:"audio_artist,omitempty"`
}

// NewAudioArtistPayload builds the payload for resolving artist on audioID.
func NewAudioArtistPayload(audioID int64, artist string) Payload {
	return Payload{
		Version:     PayloadVersion,
		Kind:        KindAudioArtist,
		AudioArtist: &AudioArtist{AudioID: audioID, Artist: artist},
	}
}

// Validate checks that the payload is well formed.
func (p Payload) Validate() error {
	if p.Version != PayloadVersion {
		return services.Wrap(services.ErrValidation, "queue", "payload", fmt.Sprintf("unsupported payload version %d", p.Version), nil)
	}
	switch p.Kind {
	case KindAudioArtist:
		if p.AudioArtist == nil {
			return services.Wrap(services.ErrValidation, "queue", "payload", "audio_artist body missing", nil)
		}
		if p.AudioArtist.AudioID <= 0 {
			return services.Wrap(services.ErrValidation, "queue", "payload", "audio_id must be positive", nil)
		}
		if strings.TrimSpace(p.AudioArtist.Artist) == "" {
			return services.Wrap(services.ErrValidation, "queue", "payload", "artist is empty", nil)
		}
		return nil
	default:
		return services.Wrap(services.ErrValidation, "queue", "payload", fmt.Sprintf("unknown kind %q", p.Kind), nil)
	}
}

// Encode serializes the payload. Field order is fixed by the struct layout
// so equal payloads always encode to identical strings.
func (p Payload) Encode() (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses and validates a stored payload.
func DecodePayload(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, services.Wrap(services.ErrValidation, "queue", "payload", "malformed payload json", err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}
