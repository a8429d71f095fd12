package repositories

import (
	"errors"

	"picserve/internal/models"

	"gorm.io/gorm"
)

type PartitionRepository interface {
	// Latest returns the most recently created partition, or nil when the
	// store is empty.
	Latest(db *gorm.DB) (*models.Partition, error)
	Create(db *gorm.DB, partition *models.Partition) error
	Save(db *gorm.DB, partition *models.Partition) error
	FindByID(db *gorm.DB, id uint) (*models.Partition, error)
	Count(db *gorm.DB) (int64, error)
}

type partitionRepository struct{}

func NewPartitionRepository() PartitionRepository {
	return &partitionRepository{}
}

func (r *partitionRepository) Latest(db *gorm.DB) (*models.Partition, error) {
	var partition models.Partition
	err := db.Order("id DESC").First(&partition).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partition, nil
}

func (r *partitionRepository) Create(db *gorm.DB, partition *models.Partition) error {
	return db.Create(partition).Error
}

func (r *partitionRepository) Save(db *gorm.DB, partition *models.Partition) error {
	return db.Save(partition).Error
}

func (r *partitionRepository) FindByID(db *gorm.DB, id uint) (*models.Partition, error) {
	var partition models.Partition
	if err := db.First(&partition, id).Error; err != nil {
		return nil, err
	}
	return &partition, nil
}

func (r *partitionRepository) Count(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.Partition{}).Count(&count).Error
	return count, err
}
