package services

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"picserve/internal/imaging"
	"picserve/internal/logger"
	"picserve/internal/models"
	"picserve/internal/partition"
	"picserve/internal/rendercache"
	"picserve/internal/repositories"
	"picserve/internal/tagger"
	"picserve/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImageService owns the write side of the catalog: ingesting uploads,
// rotating and soft-deleting images.
type ImageService struct {
	images    repositories.ImageRepository
	tags      repositories.TagRepository
	allocator *partition.Allocator
	tagger    *tagger.Tagger
	processor *imaging.Processor
	uploadDir string
}

func NewImageService(
	images repositories.ImageRepository,
	tags repositories.TagRepository,
	allocator *partition.Allocator,
	tg *tagger.Tagger,
	processor *imaging.Processor,
	uploadDir string,
) *ImageService {
	return &ImageService{
		images:    images,
		tags:      tags,
		allocator: allocator,
		tagger:    tg,
		processor: processor,
		uploadDir: uploadDir,
	}
}

// SourcePath is the on-disk location of an image's stored file. The
// Partition association must be loaded.
func (s *ImageService) SourcePath(image *models.Image) string {
	return filepath.Join(s.uploadDir, image.Partition.Folder, image.Name)
}

// Receive ingests one upload: dedupe by content hash, partition
// assignment, JPEG normalization, visual tagging and tag linking, all in
// one transaction. JPEG uploads are stored byte-identical; PNG is
// re-encoded. Any failure rolls the store back and removes the written
// file, so no row exists without a file and no file without a row.
func (s *ImageService) Receive(db *gorm.DB, title string, data []byte, userTags []string) (*models.Image, error) {
	decoded, format, err := s.processor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewBadRequestError("unsupported or corrupt image file")
	}
	if format != "jpeg" && format != "png" {
		return nil, apperrors.NewBadRequestError("unsupported file format, only PNG and JPEG allowed")
	}

	stored := data
	if format == "png" {
		if stored, err = s.processor.EncodeJPEGBytes(decoded); err != nil {
			return nil, apperrors.ErrProcessingFailed(err)
		}
	}

	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])

	var image *models.Image
	destPath := ""
	txErr := db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.images.FindByHash(tx, hash)
		if err != nil && !errors.Is(err, repositories.ErrImageNotFound) {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyExists(fmt.Errorf("image with hash %s already uploaded", hash))
		}

		part, err := s.allocator.Assign(tx)
		if err != nil {
			return err
		}

		image = &models.Image{
			PartitionID: part.ID,
			Name:        uuid.NewString() + ".jpg",
			Title:       title,
			Hash:        hash,
		}
		if err := s.images.Create(tx, image); err != nil {
			return err
		}
		image.Partition = *part

		destPath = filepath.Join(s.allocator.Dir(part), image.Name)
		if err := os.WriteFile(destPath, stored, 0o644); err != nil {
			destPath = ""
			return fmt.Errorf("failed to store uploaded file: %w", err)
		}

		for _, tagTitle := range s.mergeTags(userTags, decoded) {
			tag, err := s.tags.GetOrCreate(tx, tagTitle)
			if err != nil {
				return err
			}
			if err := s.tags.Link(tx, image.ID, tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if destPath != "" {
			os.Remove(destPath)
		}
		return nil, txErr
	}

	logger.Info("image received", "id", image.ID, "partition", image.PartitionID, "hash", hash)
	return image, nil
}

// mergeTags combines user tags with the derived visual tags, trimmed and
// deduplicated, preserving first-seen order.
func (s *ImageService) mergeTags(userTags []string, img image.Image) []string {
	merged := make([]string, 0, len(userTags)+3)
	seen := make(map[string]struct{})
	for _, title := range append(append([]string(nil), userTags...), s.tagger.Classify(img)...) {
		title = NormalizeTag(title)
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		merged = append(merged, title)
	}
	return merged
}

// Rotate turns the stored file a quarter turn and bumps the image's
// updated timestamp. The rewritten file changes the source modification
// time, which retires every cached render of it.
func (s *ImageService) Rotate(db *gorm.DB, id uint, clockwise bool) error {
	image, err := s.images.FindByID(db, id)
	if err != nil {
		if errors.Is(err, repositories.ErrImageNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return err
	}

	path := s.SourcePath(image)
	f, err := os.Open(path)
	if err != nil {
		return apperrors.ErrProcessingFailed(fmt.Errorf("source file missing: %w", err))
	}
	img, _, err := s.processor.Decode(f)
	f.Close()
	if err != nil {
		return apperrors.ErrProcessingFailed(err)
	}

	data, err := s.processor.EncodeJPEGBytes(s.processor.Rotate90(img, clockwise))
	if err != nil {
		return apperrors.ErrProcessingFailed(err)
	}
	if err := rendercache.WriteAtomic(path, data); err != nil {
		return apperrors.ErrProcessingFailed(err)
	}

	return s.images.TouchUpdated(db, id)
}

// Delete soft-deletes an image; the file stays on disk but the row is
// excluded from every selection and count from here on.
func (s *ImageService) Delete(db *gorm.DB, id uint) error {
	err := s.images.SoftDelete(db, id)
	if errors.Is(err, repositories.ErrImageNotFound) {
		return apperrors.ErrNotFound(err)
	}
	return err
}

// NormalizeTag trims a tag title; empty results are discarded by callers.
func NormalizeTag(title string) string {
	return strings.TrimSpace(title)
}
