package pgkv

import "time"

// EntryDTO is one key of the persistence primitive.
type EntryDTO struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// DefaultTable is used when no table name is configured.
const DefaultTable = "cargotrust_kv"

// TableName is the default table; Store overrides it per instance.
func (EntryDTO) TableName() string {
	return DefaultTable
}
