// internal/audio/metadata_test.go
package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWAV produces a minimal PCM16 WAV file with a sine signal.
func buildWAV(sampleRate, channels, seconds int) []byte {
	frames := sampleRate * seconds
	bitsPerSample := 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := frames * blockAlign

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(byteRate))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(bitsPerSample))

	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	for i := 0; i < frames; i++ {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)) * 16000)
		for ch := 0; ch < channels; ch++ {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
		}
	}

	return buf
}

func TestExtractWAV(t *testing.T) {
	e := NewExtractor()
	data := buildWAV(44100, 2, 3)

	meta, err := e.Extract(data, "audio/wav")
	require.NoError(t, err)

	assert.InDelta(t, 3.0, meta.Duration, 0.01)
	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, int64(len(data)), meta.Size)
	assert.Equal(t, "WAV", meta.Format)
}

func TestExtractUnrecognizedData(t *testing.T) {
	e := NewExtractor()

	meta, err := e.Extract([]byte("definitely not audio content"), "audio/flac")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	// Declared size and type are still reported.
	require.NotNil(t, meta)
	assert.Equal(t, int64(28), meta.Size)
	assert.Equal(t, "audio/flac", meta.MimeType)
	assert.Zero(t, meta.Duration)
}

func TestExtractTruncatedWAV(t *testing.T) {
	e := NewExtractor()
	data := buildWAV(8000, 1, 1)

	// Cut the file inside the fmt chunk.
	_, err := e.Extract(data[:20], "audio/wav")
	assert.Error(t, err)
}

func TestDecodeSamples(t *testing.T) {
	e := NewExtractor()
	data := buildWAV(8000, 1, 2)

	samples, sampleRate, err := e.DecodeSamples(data)
	require.NoError(t, err)

	assert.Equal(t, 8000, sampleRate)
	assert.Len(t, samples, 16000)
	for _, s := range samples {
		assert.LessOrEqual(t, math.Abs(s), 1.0)
	}
	// First sample of a sine is zero.
	assert.InDelta(t, 0.0, samples[0], 0.001)
}

func TestDecodeSamplesStereoTakesFirstChannel(t *testing.T) {
	e := NewExtractor()
	data := buildWAV(8000, 2, 1)

	samples, sampleRate, err := e.DecodeSamples(data)
	require.NoError(t, err)

	assert.Equal(t, 8000, sampleRate)
	assert.Len(t, samples, 8000)
}

func TestDecodeSamplesRejectsNonWAV(t *testing.T) {
	e := NewExtractor()

	_, _, err := e.DecodeSamples([]byte{0xFF, 0xFB, 0x90, 0x00})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractMP3FrameHeader(t *testing.T) {
	e := NewExtractor()

	// One MPEG-1 Layer III header: 128kbps, 44100Hz, stereo, followed by
	// filler payload.
	data := make([]byte, 4000)
	data[0] = 0xFF
	data[1] = 0xFB
	data[2] = 0x90 // bitrate index 9 (128kbps), sample rate index 0
	data[3] = 0x00

	meta, err := e.Extract(data, "audio/mpeg")
	require.NoError(t, err)

	assert.Equal(t, 128000, meta.Bitrate)
	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.InDelta(t, float64(len(data))*8/128000, meta.Duration, 0.01)
}
