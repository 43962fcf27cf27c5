// ABOUTME: MP3 clip reader
// ABOUTME: Decodes MP3 uploads to normalized mono frames via go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

// ReadMP3 decodes an MP3 clip into a normalized mono frame. go-mp3 always
// emits interleaved 16-bit stereo, so the two channels are mixed down.
func ReadMP3(r io.Reader) (*audio.Frame, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode: creating mp3 decoder: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode: reading mp3 stream: %w", err)
	}
	if len(raw) < 4 {
		return nil, ErrNoSamples
	}

	const channels = 2
	numSamples := len(raw) / 2
	interleaved := make([]float64, numSamples)
	for i := 0; i < numSamples; i++ {
		s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		interleaved[i] = audio.SampleFromInt16(s)
	}

	return &audio.Frame{
		Samples:    mixdown(interleaved, channels),
		SampleRate: dec.SampleRate(),
	}, nil
}
