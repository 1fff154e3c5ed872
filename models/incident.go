package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IncidentContext is the read-only incident summary passed into scoring
// and narrative calls.
type IncidentContext struct {
	Type     string   `json:"type"`
	Date     string   `json:"date"`
	Location string   `json:"location"`
	Units    []string `json:"units"`
	Notes    *string  `json:"notes,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (c IncidentContext) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *IncidentContext) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// Incident represents an incident record
type Incident struct {
	ID                  uuid.UUID       `json:"id"`
	Context             IncidentContext `json:"context"`
	SelectedTemplateIDs []uuid.UUID     `json:"selected_template_ids"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
