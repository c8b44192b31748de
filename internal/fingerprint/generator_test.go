// internal/fingerprint/generator_test.go
package fingerprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sineWave(freq float64, sampleRate, seconds int) []float64 {
	samples := make([]float64, sampleRate*seconds)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return samples
}

func TestGenerateDeterministic(t *testing.T) {
	g := NewGenerator()
	samples := sineWave(440, 44100, 5)

	first := g.Generate(samples, 44100, 2, "audio/wav")
	second := g.Generate(samples, 44100, 2, "audio/wav")

	assert.Equal(t, first.Hash, second.Hash)
	assert.Len(t, first.Hash, 8)
	assert.Equal(t, AlgorithmAmplitudeHashV1, first.Algorithm)
	assert.Equal(t, 0.8, first.Confidence)
}

func TestGenerateDifferentSignalsDiffer(t *testing.T) {
	g := NewGenerator()

	a := g.Generate(sineWave(440, 44100, 5), 44100, 1, "audio/wav")
	b := g.Generate(sineWave(880, 44100, 5), 44100, 1, "audio/wav")

	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestGenerateOnlyLeadingWindowContributes(t *testing.T) {
	g := NewGenerator()
	sampleRate := 8000

	base := sineWave(440, sampleRate, 40)
	modified := make([]float64, len(base))
	copy(modified, base)
	// Change only samples past the 30 second window.
	for i := sampleRate * 31; i < len(modified); i++ {
		modified[i] = -modified[i]
	}

	a := g.Generate(base, sampleRate, 1, "audio/wav")
	b := g.Generate(modified, sampleRate, 1, "audio/wav")

	assert.Equal(t, a.Hash, b.Hash, "samples after the window must not affect the hash")
}

func TestGenerateEmptySamples(t *testing.T) {
	g := NewGenerator()

	fp := g.Generate(nil, 44100, 2, "audio/mpeg")

	assert.Equal(t, "00000000", fp.Hash)
	assert.Equal(t, 0.0, fp.Metadata.Duration)
}

func TestGenerateMetadata(t *testing.T) {
	g := NewGenerator()
	samples := sineWave(220, 22050, 4)

	fp := g.Generate(samples, 22050, 2, "audio/wav")

	assert.InDelta(t, 4.0, fp.Metadata.Duration, 0.01)
	assert.Equal(t, 22050, fp.Metadata.SampleRate)
	assert.Equal(t, 2, fp.Metadata.Channels)
	assert.Equal(t, "audio/wav", fp.Metadata.Format)
}
