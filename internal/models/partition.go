package models

import "fmt"

// Partition is a capacity-bounded storage bucket: one directory under the
// upload root holding at most the configured number of images. Partitions
// are append-only; the folder name is derived from the id and never changes.
type Partition struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Folder string `gorm:"size:32;not null" json:"folder"`
}

// FolderName derives the on-disk directory name for a partition id.
func FolderName(id uint) string {
	return fmt.Sprintf("%06d", id)
}
