// internal/fingerprint/generator.go

// Package fingerprint derives a deterministic content hash from decoded
// audio samples. The amplitude hash here is a placeholder for a
// perceptual fingerprint; the contract callers rely on is determinism
// and the attached confidence, not the specific algorithm.
package fingerprint

import (
	"fmt"
	"math"
)

const (
	AlgorithmAmplitudeHashV1 = "amplitude_hash_v1"

	// Only the leading window of the signal contributes to the hash.
	windowSeconds = 30

	// The window is reduced to this many evenly spaced buckets.
	bucketCount = 1000

	// Fixed self-confidence for this class of algorithm.
	algorithmConfidence = 0.8
)

type Fingerprint struct {
	Hash       string   `json:"hash"`
	Algorithm  string   `json:"algorithm"`
	Confidence float64  `json:"confidence"`
	Metadata   Metadata `json:"metadata"`
}

type Metadata struct {
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Format     string  `json:"format"`
}

// Generator produces fingerprints for decoded sample data. It is
// stateless and safe for concurrent use.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate hashes the first 30 seconds of the signal into a fixed-width
// hex string. Identical sample data always yields an identical hash.
func (g *Generator) Generate(samples []float64, sampleRate int, channels int, format string) Fingerprint {
	window := len(samples)
	if sampleRate > 0 && window > sampleRate*windowSeconds {
		window = sampleRate * windowSeconds
	}

	step := window / bucketCount
	if step < 1 {
		step = 1
	}

	// Rolling hash over quantized bucket magnitudes. Quantization keeps
	// the hash independent of float rounding across platforms.
	var hash uint32
	for i := 0; i < window; i += step {
		magnitude := uint32(math.Abs(samples[i]) * 65535)
		hash = (hash<<5 - hash + magnitude) & 0xFFFFFFFF
	}

	duration := 0.0
	if sampleRate > 0 {
		duration = float64(len(samples)) / float64(sampleRate)
	}

	return Fingerprint{
		Hash:       fmt.Sprintf("%08x", hash),
		Algorithm:  AlgorithmAmplitudeHashV1,
		Confidence: algorithmConfidence,
		Metadata: Metadata{
			Duration:   duration,
			SampleRate: sampleRate,
			Channels:   channels,
			Format:     format,
		},
	}
}
