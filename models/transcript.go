package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranscriptSegment represents one timed utterance in a transcript.
// Segments are ordered by StartTime and immutable once transcription completes.
type TranscriptSegment struct {
	ID         string   `json:"id"`
	StartTime  float64  `json:"start_time"` // seconds
	EndTime    float64  `json:"end_time"`   // seconds, >= StartTime
	Text       string   `json:"text"`
	Speaker    *string  `json:"speaker,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"` // 0..1
}

// TranscriptSegments represents an ordered list of segments
type TranscriptSegments []TranscriptSegment

// Value implements driver.Valuer for JSONB
func (s TranscriptSegments) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *TranscriptSegments) Scan(value interface{}) error {
	if value == nil {
		*s = make(TranscriptSegments, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = make(TranscriptSegments, 0)
		return nil
	}

	if len(bytes) == 0 {
		*s = make(TranscriptSegments, 0)
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Transcript represents a completed radio-communications transcription
type Transcript struct {
	ID         uuid.UUID          `json:"id"`
	IncidentID uuid.UUID          `json:"incident_id"`
	Text       string             `json:"text"`
	Segments   TranscriptSegments `json:"segments"`
	CreatedAt  time.Time          `json:"created_at"`
}

// FormatTimestamp renders a segment offset as mm:ss, or h:mm:ss at or
// above one hour. Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	hours := total / 3600
	mins := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
