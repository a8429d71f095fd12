package models

// Tag titles are case-sensitive, trimmed and non-empty. Visual tags
// (horizontal, hq, redBg, ...) share the table with user-supplied ones.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Title string `gorm:"size:128;uniqueIndex;not null" json:"title"`
}

// ImageTag links images to tags; a given pair appears at most once.
type ImageTag struct {
	ImageID uint `gorm:"primaryKey;autoIncrement:false" json:"image_id"`
	TagID   uint `gorm:"primaryKey;autoIncrement:false" json:"tag_id"`
}
