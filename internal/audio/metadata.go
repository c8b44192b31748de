// internal/audio/metadata.go

// Package audio extracts best-effort technical metadata from raw audio
// payloads. Extraction failure is tolerated by callers: an unknown
// duration is reported as zero, never as an error that blocks upload
// validation.
package audio

import (
	"encoding/binary"
	"errors"
	"strings"
)

type Metadata struct {
	Duration   float64 `json:"duration,omitempty"`
	Size       int64   `json:"size"`
	MimeType   string  `json:"type"`
	Format     string  `json:"format,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	Bitrate    int     `json:"bitrate,omitempty"`
}

var ErrUnsupportedFormat = errors.New("audio: unsupported or unrecognized format")

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses container headers for duration, sample rate and channel
// count. It always returns a Metadata carrying the declared size and
// MIME type; header fields are filled only when parsing succeeds.
func (e *Extractor) Extract(data []byte, declaredType string) (*Metadata, error) {
	meta := &Metadata{
		Size:     int64(len(data)),
		MimeType: declaredType,
		Format:   formatFromMime(declaredType),
	}

	switch {
	case isWAV(data):
		if err := parseWAV(data, meta); err != nil {
			return meta, err
		}
	case isMP3(data):
		if err := parseMP3(data, meta); err != nil {
			return meta, err
		}
	default:
		return meta, ErrUnsupportedFormat
	}

	return meta, nil
}

func formatFromMime(mimeType string) string {
	if idx := strings.Index(mimeType, "/"); idx >= 0 && idx < len(mimeType)-1 {
		return strings.ToUpper(mimeType[idx+1:])
	}
	return ""
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func parseWAV(data []byte, meta *Metadata) error {
	var (
		byteRate      uint32
		bitsPerSample uint16
		dataSize      uint32
		haveFmt       bool
		haveData      bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(data) {
				return errors.New("audio: truncated fmt chunk")
			}
			meta.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			meta.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			dataSize = chunkSize
			haveData = true
		}

		// Chunks are word-aligned.
		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt || !haveData {
		return errors.New("audio: missing fmt or data chunk")
	}
	if byteRate > 0 {
		meta.Duration = float64(dataSize) / float64(byteRate)
	}
	if meta.SampleRate > 0 && meta.Channels > 0 && bitsPerSample > 0 {
		meta.Bitrate = meta.SampleRate * meta.Channels * int(bitsPerSample)
	}
	return nil
}

// MPEG-1 Layer III bitrate table (kbps) and sample rates.
var (
	mp3Bitrates    = [...]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mp3SampleRates = [...]int{44100, 48000, 32000, 0}
)

func parseMP3(data []byte, meta *Metadata) error {
	offset := 0
	if len(data) >= 10 && string(data[0:3]) == "ID3" {
		// Syncsafe 28-bit tag size.
		tagSize := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
		offset = 10 + tagSize
	}

	for ; offset+4 <= len(data); offset++ {
		if data[offset] != 0xFF || data[offset+1]&0xE0 != 0xE0 {
			continue
		}
		bitrateIdx := int(data[offset+2]>>4) & 0x0F
		sampleIdx := int(data[offset+2]>>2) & 0x03
		bitrate := mp3Bitrates[bitrateIdx] * 1000
		sampleRate := mp3SampleRates[sampleIdx]
		if bitrate == 0 || sampleRate == 0 {
			continue
		}

		meta.Bitrate = bitrate
		meta.SampleRate = sampleRate
		if data[offset+3]>>6 == 3 {
			meta.Channels = 1
		} else {
			meta.Channels = 2
		}
		// CBR estimate from the remaining payload.
		meta.Duration = float64(len(data)-offset) * 8 / float64(bitrate)
		return nil
	}

	return errors.New("audio: no valid MP3 frame header found")
}

// DecodeSamples decodes 16-bit PCM WAV data into normalized mono samples
// in [-1, 1] for fingerprinting. Non-WAV or non-PCM input returns
// ErrUnsupportedFormat; the caller treats that as a soft failure.
func (e *Extractor) DecodeSamples(data []byte) ([]float64, int, error) {
	if !isWAV(data) {
		return nil, 0, ErrUnsupportedFormat
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(data) {
				return nil, 0, errors.New("audio: truncated fmt chunk")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return nil, 0, ErrUnsupportedFormat
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			end := body + chunkSize
			if end > len(data) {
				end = len(data)
			}
			pcm = data[body:end]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if bitsPerSample != 16 || channels == 0 || sampleRate == 0 || len(pcm) == 0 {
		return nil, 0, ErrUnsupportedFormat
	}

	frameSize := 2 * channels
	samples := make([]float64, 0, len(pcm)/frameSize)
	for i := 0; i+frameSize <= len(pcm); i += frameSize {
		// First channel only; fingerprinting does not need a downmix.
		v := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		samples = append(samples, float64(v)/32768.0)
	}

	return samples, sampleRate, nil
}
