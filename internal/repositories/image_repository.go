package repositories

import (
	"errors"
	"time"

	"picserve/internal/models"

	"gorm.io/gorm"
)

var (
	ErrImageNotFound = errors.New("image not found")
)

type ImageRepository interface {
	Create(db *gorm.DB, image *models.Image) error
	FindByID(db *gorm.DB, id uint) (*models.Image, error)
	FindByHash(db *gorm.DB, hash string) (*models.Image, error)

	// FindCandidates returns all non-removed images whose tag set is a
	// superset of the given filter, ordered by creation time ascending.
	// An empty filter matches everything. The ordering is load-bearing:
	// new images append at the end so rotation indices stay stable.
	FindCandidates(db *gorm.DB, tags []string) ([]models.Image, error)
	CountByTags(db *gorm.DB, tags []string) (int64, error)

	CountByPartition(db *gorm.DB, partitionID uint) (int64, error)
	TouchUpdated(db *gorm.DB, id uint) error
	SoftDelete(db *gorm.DB, id uint) error
}

type imageRepository struct{}

func NewImageRepository() ImageRepository {
	return &imageRepository{}
}

func (r *imageRepository) Create(db *gorm.DB, image *models.Image) error {
	return db.Create(image).Error
}

func (r *imageRepository) FindByID(db *gorm.DB, id uint) (*models.Image, error) {
	var image models.Image
	err := db.Preload("Partition").First(&image, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// FindByHash looks across removed images too: the hash stays unique over
// the whole table, so a soft-deleted upload still blocks a duplicate.
func (r *imageRepository) FindByHash(db *gorm.DB, hash string) (*models.Image, error) {
	var image models.Image
	err := db.Unscoped().Where("hash = ?", hash).First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// candidateQuery builds the match-all tag filter: images joined to every
// requested tag with a distinct-count check against the filter cardinality.
func candidateQuery(db *gorm.DB, tags []string) *gorm.DB {
	q := db.Model(&models.Image{})
	if len(tags) > 0 {
		q = q.Joins("JOIN image_tags it ON it.image_id = images.id").
			Joins("JOIN tags t ON t.id = it.tag_id").
			Where("t.title IN ?", tags).
			Group("images.id").
			Having("COUNT(DISTINCT t.title) = ?", len(tags))
	}
	return q
}

func (r *imageRepository) FindCandidates(db *gorm.DB, tags []string) ([]models.Image, error) {
	var images []models.Image
	err := candidateQuery(db, tags).
		Preload("Partition").
		Order("images.created_at ASC, images.id ASC").
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (r *imageRepository) CountByTags(db *gorm.DB, tags []string) (int64, error) {
	if len(tags) == 0 {
		var count int64
		err := db.Model(&models.Image{}).Count(&count).Error
		return count, err
	}
	// Grouped queries count per group, so count the grouped ids in a subquery.
	var count int64
	sub := candidateQuery(db, tags).Select("images.id")
	err := db.Table("(?) AS matched", sub).Count(&count).Error
	return count, err
}

func (r *imageRepository) CountByPartition(db *gorm.DB, partitionID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Image{}).Where("partition_id = ?", partitionID).Count(&count).Error
	return count, err
}

func (r *imageRepository) TouchUpdated(db *gorm.DB, id uint) error {
	return db.Model(&models.Image{}).Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

func (r *imageRepository) SoftDelete(db *gorm.DB, id uint) error {
	result := db.Delete(&models.Image{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}
