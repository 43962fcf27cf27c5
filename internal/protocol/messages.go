// ABOUTME: Result message types for both serving paths
// ABOUTME: Defines the JSON shapes and the canonical numeric formatting
package protocol

import (
	"fmt"

	"github.com/keyscope/keyscope-go/pkg/analysis"
)

// Status is the terminal state of an analysis result.
type Status string

const (
	StatusDetected Status = "Detected"
	StatusError    Status = "Error"
	StatusStopped  Status = "Stopped"
)

// Unknown is the sentinel value substituted when an estimator cannot
// produce a result.
const Unknown = "Unknown"

// StreamResult is the per-window message sent to streaming clients.
// Stopped results carry only the status field.
type StreamResult struct {
	BPM      string `json:"bpm,omitempty"`
	Key      string `json:"key,omitempty"`
	Strength string `json:"strength,omitempty"`
	Status   Status `json:"status"`
}

// ClipKey is the key signature element of a one-shot response.
type ClipKey struct {
	Tonic    string `json:"tonic"`
	Scale    string `json:"scale"`
	Strength string `json:"strength"`
}

// ClipResult is the success response of the one-shot endpoint.
type ClipResult struct {
	BPM    string  `json:"bpm"`
	Key    ClipKey `json:"key"`
	Status Status  `json:"status"`
}

// ErrorResponse is the failure body of the one-shot endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FormatBPM renders a tempo with three-decimal fixed precision. This is
// the canonical policy for both the streaming and one-shot paths.
func FormatBPM(bpm float64) string {
	return fmt.Sprintf("%.3f", bpm)
}

// FormatStrength renders a [0,1] confidence as a two-decimal percentage.
func FormatStrength(strength float64) string {
	return fmt.Sprintf("%.2f%%", strength*100)
}

// FormatKeyName renders a key as "<PitchClass><scale>", e.g. "Cminor".
func FormatKeyName(k analysis.Key) string {
	return k.Tonic + string(k.Scale)
}

// DetectedResult builds a streaming result for a completed window.
func DetectedResult(bpm float64, key analysis.Key) StreamResult {
	return StreamResult{
		BPM:      FormatBPM(bpm),
		Key:      FormatKeyName(key),
		Strength: FormatStrength(key.Strength),
		Status:   StatusDetected,
	}
}

// ErrorResult builds the streaming result substituted when decoding or
// analysis of a window fails.
func ErrorResult() StreamResult {
	return StreamResult{
		BPM:    Unknown,
		Key:    Unknown,
		Status: StatusError,
	}
}

// StoppedResult builds the terminal result sent after a stop command.
func StoppedResult() StreamResult {
	return StreamResult{Status: StatusStopped}
}
