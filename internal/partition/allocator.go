// Package partition assigns uploads to capacity-bounded storage buckets.
// Each partition maps to one directory under the upload root and holds at
// most the configured number of non-removed images. Partitions are
// append-only: once full, a new one is created, never split or rebalanced.
package partition

import (
	"os"
	"path/filepath"

	"picserve/internal/logger"
	"picserve/internal/models"
	"picserve/internal/repositories"
	"picserve/pkg/apperrors"

	"gorm.io/gorm"
)

type Allocator struct {
	partitions repositories.PartitionRepository
	images     repositories.ImageRepository
	uploadDir  string
	limit      int
}

func NewAllocator(partitions repositories.PartitionRepository, images repositories.ImageRepository, uploadDir string, limit int) *Allocator {
	return &Allocator{
		partitions: partitions,
		images:     images,
		uploadDir:  uploadDir,
		limit:      limit,
	}
}

// Assign returns the partition that should receive the next upload,
// creating a new one when none exists or the latest is full. Callers run
// it inside their upload transaction so the count-then-create sequence
// commits or rolls back with the image row; the capacity limit is a soft
// bound under concurrent uploads.
func (a *Allocator) Assign(db *gorm.DB) (*models.Partition, error) {
	latest, err := a.partitions.Latest(db)
	if err != nil {
		return nil, err
	}

	if latest != nil {
		count, err := a.images.CountByPartition(db, latest.ID)
		if err != nil {
			return nil, err
		}
		if count < int64(a.limit) {
			if err := a.ensureDir(latest); err != nil {
				return nil, err
			}
			return latest, nil
		}
	}

	created := &models.Partition{}
	if err := a.partitions.Create(db, created); err != nil {
		return nil, err
	}
	created.Folder = models.FolderName(created.ID)
	if err := a.partitions.Save(db, created); err != nil {
		return nil, err
	}
	if err := a.ensureDir(created); err != nil {
		return nil, err
	}

	logger.Info("created storage partition", "id", created.ID, "folder", created.Folder)
	return created, nil
}

// Dir returns the absolute directory of a partition.
func (a *Allocator) Dir(p *models.Partition) string {
	return filepath.Join(a.uploadDir, p.Folder)
}

func (a *Allocator) ensureDir(p *models.Partition) error {
	if err := os.MkdirAll(a.Dir(p), 0o755); err != nil {
		return apperrors.ErrAllocationFailed(err)
	}
	return nil
}
