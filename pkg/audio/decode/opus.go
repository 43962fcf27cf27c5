// ABOUTME: Ogg/Opus clip reader
// ABOUTME: Decodes Opus uploads to normalized mono frames via hraban/opus
package decode

import (
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

// Opus always decodes at 48 kHz regardless of the encoded rate.
const opusSampleRate = 48000

// ReadOpus decodes an Ogg/Opus clip into a normalized mono frame. Mono
// sources are the validated path, matching the streaming endpoint.
func ReadOpus(r io.Reader) (*audio.Frame, error) {
	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("decode: creating opus stream: %w", err)
	}
	defer stream.Close()

	var samples []float64
	pcm := make([]int16, 16384)
	for {
		n, err := stream.Read(pcm)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode: reading opus stream: %w", err)
		}
		for _, s := range pcm[:n] {
			samples = append(samples, audio.SampleFromInt16(s))
		}
	}

	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	return &audio.Frame{Samples: samples, SampleRate: opusSampleRate}, nil
}
