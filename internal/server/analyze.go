// ABOUTME: One-shot analysis endpoint
// ABOUTME: Authenticates, decodes an uploaded clip, and runs both estimators once
package server

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/keyscope/keyscope-go/internal/protocol"
	"github.com/keyscope/keyscope-go/pkg/analysis"
	"github.com/keyscope/keyscope-go/pkg/audio/decode"
)

const (
	apiKeyHeader   = "x-api-key"
	maxUploadBytes = 64 << 20
)

// handleAnalyze serves the one-shot path: a complete pre-recorded clip is
// decoded with the container-aware readers and analyzed once, without any
// session or buffering state. The API key is checked before the body is
// touched; every internal failure becomes a structured error response.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cfg := s.config()
	key := r.Header.Get(apiKeyHeader)
	if cfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	frame, err := decode.ReadClip(header.Filename, file)
	if err != nil {
		log.Printf("One-shot decode failed for %q: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	bpm, err := analysis.EstimateBPM(frame)
	if err != nil {
		log.Printf("One-shot tempo estimation failed for %q: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keySig, err := analysis.EstimateKey(frame)
	if err != nil {
		log.Printf("One-shot key estimation failed for %q: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, protocol.ClipResult{
		BPM: protocol.FormatBPM(bpm),
		Key: protocol.ClipKey{
			Tonic:    keySig.Tonic,
			Scale:    string(keySig.Scale),
			Strength: protocol.FormatStrength(keySig.Strength),
		},
		Status: protocol.StatusDetected,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, protocol.ErrorResponse{Error: msg})
}
