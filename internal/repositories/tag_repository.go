package repositories

import (
	"picserve/internal/models"

	"gorm.io/gorm"
)

// TagCount pairs a tag title with the number of live images carrying it.
type TagCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

type TagRepository interface {
	GetOrCreate(db *gorm.DB, title string) (*models.Tag, error)
	// Link associates an image with a tag; linking twice is a no-op.
	Link(db *gorm.DB, imageID, tagID uint) error
	TitlesForImage(db *gorm.DB, imageID uint) ([]string, error)
	ListWithCounts(db *gorm.DB) ([]TagCount, error)
}

type tagRepository struct{}

func NewTagRepository() TagRepository {
	return &tagRepository{}
}

func (r *tagRepository) GetOrCreate(db *gorm.DB, title string) (*models.Tag, error) {
	var tag models.Tag
	err := db.Where("title = ?", title).
		FirstOrCreate(&tag, models.Tag{Title: title}).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) Link(db *gorm.DB, imageID, tagID uint) error {
	link := models.ImageTag{ImageID: imageID, TagID: tagID}
	return db.Where(link).FirstOrCreate(&link).Error
}

func (r *tagRepository) TitlesForImage(db *gorm.DB, imageID uint) ([]string, error) {
	var titles []string
	err := db.Model(&models.Tag{}).
		Joins("JOIN image_tags it ON it.tag_id = tags.id").
		Where("it.image_id = ?", imageID).
		Order("tags.title ASC").
		Pluck("tags.title", &titles).Error
	if err != nil {
		return nil, err
	}
	return titles, nil
}

// ListWithCounts counts only non-removed images per tag; tags whose images
// were all removed still appear with a zero count.
func (r *tagRepository) ListWithCounts(db *gorm.DB) ([]TagCount, error) {
	var counts []TagCount
	err := db.Model(&models.Tag{}).
		Select("tags.title AS title, COUNT(images.id) AS count").
		Joins("LEFT JOIN image_tags it ON it.tag_id = tags.id").
		Joins("LEFT JOIN images ON images.id = it.image_id AND images.removed_at IS NULL").
		Group("tags.id").
		Order("tags.title ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
