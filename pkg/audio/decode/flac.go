// ABOUTME: FLAC clip reader
// ABOUTME: Decodes FLAC uploads to normalized mono frames via mewkiz/flac
package decode

import (
	"fmt"
	"io"
	"math"

	"github.com/mewkiz/flac"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

// ReadFLAC decodes a FLAC clip into a normalized mono frame, scaling
// samples by the stream's bit depth and mixing channels down.
func ReadFLAC(r io.Reader) (*audio.Frame, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("decode: creating flac stream: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	sampleRate := int(info.SampleRate)
	scale := math.Pow(2, float64(info.BitsPerSample-1))

	var interleaved []float64
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode: parsing flac frame: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				interleaved = append(interleaved, float64(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	if len(interleaved) == 0 {
		return nil, ErrNoSamples
	}

	return &audio.Frame{
		Samples:    mixdown(interleaved, channels),
		SampleRate: sampleRate,
	}, nil
}
