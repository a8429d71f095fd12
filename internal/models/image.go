package models

import (
	"time"

	"gorm.io/gorm"
)

// Image is one stored upload. The content hash is the dedupe key and is
// unique across the whole catalog. RemovedAt is a soft delete: gorm keeps
// removed rows out of every selection and count query automatically.
type Image struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PartitionID uint           `gorm:"not null;index" json:"partition_id"`
	Partition   Partition      `json:"-"`
	Name        string         `gorm:"size:64;not null" json:"name"`             // stored filename, always .jpg
	Title       string         `gorm:"size:255" json:"title"`                    // original upload name
	Hash        string         `gorm:"size:32;uniqueIndex;not null" json:"hash"` // md5 of stored content
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	RemovedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
