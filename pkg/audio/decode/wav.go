// ABOUTME: WAV (RIFF) clip reader
// ABOUTME: Parses PCM WAV headers and decodes the data chunk to a mono frame
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/keyscope/keyscope-go/pkg/audio"
)

// Chunk sizes come from the file and are untrusted; allocations for the
// fmt and data chunks are capped at this many bytes.
const maxChunkBytes = 64 << 20

// ReadWAV decodes a 16-bit PCM WAV file into a normalized mono frame.
// Multi-channel files are mixed down. Chunks other than fmt and data
// (LIST, fact, ...) are skipped.
func ReadWAV(r io.Reader) (*audio.Frame, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("decode: reading RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("decode: not a RIFF/WAVE file")
	}

	var (
		channels   int
		sampleRate int
		bitDepth   int
		haveFmt    bool
	)

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("decode: WAV has no data chunk")
			}
			return nil, fmt.Errorf("decode: reading chunk header: %w", err)
		}
		chunkID := string(hdr[0:4])
		chunkSize := binary.LittleEndian.Uint32(hdr[4:8])

		if (chunkID == "fmt " || chunkID == "data") && chunkSize > maxChunkBytes {
			return nil, fmt.Errorf("decode: %s chunk size %d exceeds %d byte limit", chunkID, chunkSize, maxChunkBytes)
		}

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("decode: reading fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, fmt.Errorf("decode: fmt chunk too short (%d bytes)", len(body))
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != 1 {
				return nil, fmt.Errorf("decode: unsupported WAV format tag %d (PCM only)", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			if bitDepth != 16 {
				return nil, fmt.Errorf("decode: unsupported WAV bit depth %d (16 only)", bitDepth)
			}
			if channels < 1 || sampleRate < 1 {
				return nil, fmt.Errorf("decode: invalid WAV format: %d channels, %d Hz", channels, sampleRate)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("decode: WAV data chunk before fmt chunk")
			}
			data := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("decode: reading data chunk: %w", err)
			}
			return PCM(data, sampleRate, channels)

		default:
			// Chunk bodies are word-aligned; a chunk with an odd size
			// is followed by one pad byte.
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("decode: skipping %s chunk: %w", chunkID, err)
			}
		}
	}
}
