// Package captures implements the capture history domain: every completed
// recognition is persisted with its expression, confidence, computed value,
// and an optional archived copy of the source photo.
package captures

import (
	"time"

	"github.com/google/uuid"
)

// Capture is a stored recognition result. It mirrors the captures table
// schema; StorageKey points at the archived source photo when one was kept.
type Capture struct {
	ID         uuid.UUID `json:"id"`
	Expression string    `json:"expression"`
	Confidence float64   `json:"confidence"`
	Value      float64   `json:"value"`
	Source     string    `json:"source"`
	RetryCount int       `json:"retry_count"`
	DurationMS int64     `json:"duration_ms"`
	StorageKey *string   `json:"storage_key,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// RecordCommand carries the data needed to persist one completed capture.
// Image is optional; when present it is archived to blob storage before the
// row is written.
type RecordCommand struct {
	ID         uuid.UUID
	Expression string
	Confidence float64
	Value      float64
	Source     string
	RetryCount int
	Duration   time.Duration
	Image      []byte
}
