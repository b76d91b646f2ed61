// Package types provides shared type definitions for the application.
package types

import "time"

// Transcription is one completed recording-to-text cycle. It is what the
// history store persists and what observers see after a result is injected.
type Transcription struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Language     string    `json:"language"`
	AudioSeconds float64   `json:"audioSeconds"` // length of the recorded audio
	TookSeconds  float64   `json:"tookSeconds"`  // engine processing time
	Device       string    `json:"device,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
