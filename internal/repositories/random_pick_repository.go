package repositories

import (
	"errors"

	"picserve/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RandomPickRepository interface {
	Find(db *gorm.DB, fingerprint string) (*models.RandomPick, error)
	// Upsert inserts the pick or overwrites the existing row for the same
	// fingerprint in a single statement, so concurrent refreshes degrade to
	// last-writer-wins instead of duplicate rows.
	Upsert(db *gorm.DB, pick *models.RandomPick) error
}

type randomPickRepository struct{}

func NewRandomPickRepository() RandomPickRepository {
	return &randomPickRepository{}
}

func (r *randomPickRepository) Find(db *gorm.DB, fingerprint string) (*models.RandomPick, error) {
	var pick models.RandomPick
	err := db.Where("fingerprint = ?", fingerprint).First(&pick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pick, nil
}

func (r *randomPickRepository) Upsert(db *gorm.DB, pick *models.RandomPick) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{"chosen_index", "expires_at"}),
	}).Create(pick).Error
}
