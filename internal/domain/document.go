package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap is a custom type for storing JSON objects as text in the database.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the map.
//   - error: non-nil if marshaling fails.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// Document represents an ingested document in the system.
// The URL is the natural key: re-ingesting the same URL updates content
// in place rather than creating a duplicate.
type Document struct {
	ID                string     `gorm:"type:text;primaryKey" json:"id"`
	URL               string     `gorm:"type:text;not null;uniqueIndex:idx_documents_url" json:"url"`
	RawContent        string     `gorm:"type:text" json:"raw_content"`
	NormalizedContent string     `gorm:"type:text" json:"normalized_content"`
	SourceDomain      string     `gorm:"type:text;index:idx_documents_source" json:"source_domain"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string {
	return "documents"
}

// AnalysisResult holds one agent's output for one document.
// At most one live result exists per (document_id, agent_id); re-processing
// overwrites the previous row.
type AnalysisResult struct {
	DocumentID      string    `gorm:"type:text;primaryKey" json:"document_id"`
	AgentID         string    `gorm:"type:text;primaryKey" json:"agent_id"`
	ResultJSON      JSONMap   `gorm:"type:text;column:result_json" json:"result_json"`
	ModelVersion    string    `gorm:"type:text" json:"model_version"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	CreatedAt       time.Time `json:"created_at"`

	Document Document `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for AnalysisResult.
func (AnalysisResult) TableName() string {
	return "analysis_results"
}
