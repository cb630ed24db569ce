package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SourceKind identifies the family of fetcher a source definition uses.
type SourceKind string

const (
	SourceKindAPI         SourceKind = "api"
	SourceKindCSV         SourceKind = "csv"
	SourceKindDatabase    SourceKind = "database"
	SourceKindSharePoint  SourceKind = "sharepoint"
	SourceKindObjectStore SourceKind = "objectstore"
	SourceKindScrape      SourceKind = "scrape"
)

// IsValidSourceKind checks if a source kind is valid
func IsValidSourceKind(kind string) bool {
	switch SourceKind(kind) {
	case SourceKindAPI, SourceKindCSV, SourceKindDatabase,
		SourceKindSharePoint, SourceKindObjectStore, SourceKindScrape:
		return true
	default:
		return false
	}
}

// SourceSettings holds the kind-specific fetch settings of a source
// definition, stored as a JSON column when the catalog is enabled.
type SourceSettings map[string]interface{}

// Value implements driver.Valuer interface for GORM
func (s SourceSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for GORM
func (s *SourceSettings) Scan(value interface{}) error {
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
		return json.Unmarshal([]byte(v.(string)), s)
	}

	return json.Unmarshal(bytes, s)
}

// SourceDefinition is a registered ingestion source: which fetcher family
// to use, which contract its batches must satisfy, and the kind-specific
// settings the fetcher needs. Definitions usually come from the config
// file; the optional catalog persists them so the admin API can manage and
// trigger them.
type SourceDefinition struct {
	ID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Kind      SourceKind     `gorm:"size:32;not null" json:"kind"`
	Origin    string         `gorm:"size:64;not null" json:"origin"`
	Framework string         `gorm:"size:64;not null" json:"framework"`
	Contract  string         `gorm:"size:255;not null" json:"contract"`
	Format    DataFormat     `gorm:"size:16;not null;default:'csv'" json:"format"`
	Strict    bool           `gorm:"default:true" json:"strict"`
	Enabled   bool           `gorm:"default:true" json:"enabled"`
	Settings  SourceSettings `gorm:"type:json" json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the table name for the SourceDefinition model
func (SourceDefinition) TableName() string {
	return "source_definitions"
}

// BeforeCreate generates a new UUID if ID is empty
func (sd *SourceDefinition) BeforeCreate(tx *gorm.DB) error {
	if sd.ID == "" {
		sd.ID = uuid.New().String()
	}
	return nil
}
