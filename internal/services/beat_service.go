// internal/services/beat_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/currency"
	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

var (
	ErrLicenseNotFound     = errors.New("license not found")
	ErrNotBeatOwner        = errors.New("beat does not belong to this producer")
	ErrBeatExclusivelySold = errors.New("beat was sold exclusively and cannot be re-enabled")
)

type BeatService struct {
	db *gorm.DB
}

type CreateBeatRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description,omitempty"`
	Genre       string   `json:"genre,omitempty" validate:"omitempty,max=50"`
	BPM         int      `json:"bpm,omitempty" validate:"omitempty,min=20,max=300"`
	Tags        []string `json:"tags,omitempty"`
	AudioURL    string   `json:"audio_url,omitempty" validate:"omitempty,url"`
}

type AttachLicenseRequest struct {
	LicenseID uuid.UUID `json:"license_id" validate:"required"`
	Price     float64   `json:"price" validate:"required,gt=0"`
}

type ModerateBeatRequest struct {
	Status models.BeatStatus `json:"status" validate:"required,oneof=enabled disabled under_review banned"`
	Reason string            `json:"reason,omitempty"`
}

func NewBeatService(db *gorm.DB) *BeatService {
	return &BeatService{db: db}
}

func (s *BeatService) CreateBeat(producerID uuid.UUID, req *CreateBeatRequest) (*models.Beat, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	beat := &models.Beat{
		ProducerID:  producerID,
		Title:       req.Title,
		Description: req.Description,
		Genre:       req.Genre,
		BPM:         req.BPM,
		Tags:        pq.StringArray(req.Tags),
		AudioURL:    req.AudioURL,
		Status:      models.BeatStatusEnabled,
		IsActive:    true,
	}

	if err := s.db.Create(beat).Error; err != nil {
		return nil, fmt.Errorf("failed to create beat: %w", err)
	}

	return beat, nil
}

// AttachLicense offers the beat under a license template at a price. An
// existing attachment is re-priced.
func (s *BeatService) AttachLicense(producerID, beatID uuid.UUID, req *AttachLicenseRequest) (*models.BeatLicense, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var beatLicense *models.BeatLicense

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var beat models.Beat
		if err := tx.First(&beat, "id = ?", beatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBeatNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}
		if beat.ProducerID != producerID {
			return ErrNotBeatOwner
		}

		var license models.License
		if err := tx.First(&license, "id = ? AND is_active = ?", req.LicenseID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		price := currency.RoundCents(req.Price)

		var existing models.BeatLicense
		err := tx.Where("beat_id = ? AND license_id = ?", beatID, req.LicenseID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Update("price", price).Error; err != nil {
				return fmt.Errorf("failed to update license price: %w", err)
			}
			beatLicense = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			beatLicense = &models.BeatLicense{
				BeatID:    beatID,
				LicenseID: req.LicenseID,
				Price:     price,
			}
			if err := tx.Create(beatLicense).Error; err != nil {
				return fmt.Errorf("failed to attach license: %w", err)
			}
		default:
			return fmt.Errorf("database error: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return beatLicense, nil
}

// DetachLicense stops offering the beat under a license. Past purchases
// keep their license reference.
func (s *BeatService) DetachLicense(producerID, beatID, licenseID uuid.UUID) error {
	var beat models.Beat
	if err := s.db.First(&beat, "id = ?", beatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBeatNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}
	if beat.ProducerID != producerID {
		return ErrNotBeatOwner
	}

	// Hard delete: a soft-deleted row would still occupy the
	// (beat_id, license_id) unique index and block re-attaching.
	result := s.db.Unscoped().Where("beat_id = ? AND license_id = ?", beatID, licenseID).
		Delete(&models.BeatLicense{})
	if result.Error != nil {
		return fmt.Errorf("failed to detach license: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLicenseNotOffered
	}
	return nil
}

func (s *BeatService) GetBeat(beatID uuid.UUID) (*models.Beat, error) {
	var beat models.Beat
	if err := s.db.Preload("Licenses").Preload("Licenses.License").Preload("Producer").
		First(&beat, "id = ?", beatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBeatNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &beat, nil
}

// ListBeats returns the public catalog: enabled, active beats only.
func (s *BeatService) ListBeats(params utils.PaginationParams) ([]models.Beat, int64, error) {
	query := s.db.Model(&models.Beat{}).
		Where("status = ? AND is_active = ?", models.BeatStatusEnabled, true).
		Preload("Licenses").Preload("Licenses.License")

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}
	if params.Genre != "" {
		query = query.Where("genre = ?", params.Genre)
	}

	return s.listBeats(query, params)
}

func (s *BeatService) ProducerBeats(producerID uuid.UUID, params utils.PaginationParams) ([]models.Beat, int64, error) {
	query := s.db.Model(&models.Beat{}).Where("producer_id = ?", producerID).
		Preload("Licenses").Preload("Licenses.License")
	return s.listBeats(query, params)
}

// ModerateBeat applies an admin status change. Re-enabling a beat that
// was sold exclusively is refused: that delisting is permanent.
func (s *BeatService) ModerateBeat(beatID uuid.UUID, req *ModerateBeatRequest) (*models.Beat, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var beat models.Beat

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&beat, "id = ?", beatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBeatNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if req.Status == models.BeatStatusEnabled {
			var exclusiveSales int64
			if err := tx.Model(&models.Purchase{}).
				Joins("JOIN licenses ON licenses.id = purchases.license_id").
				Where("purchases.beat_id = ? AND licenses.name = ?", beatID, models.LicenseNameExclusive).
				Count(&exclusiveSales).Error; err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			if exclusiveSales > 0 {
				return ErrBeatExclusivelySold
			}
		}

		updates := map[string]interface{}{
			"status":      req.Status,
			"is_active":   req.Status == models.BeatStatusEnabled,
			"flag_reason": req.Reason,
		}
		if err := tx.Model(&beat).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to moderate beat: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.First(&beat, "id = ?", beatID).Error; err == nil {
		return &beat, nil
	}
	return &beat, nil
}

func (s *BeatService) ListLicenses() ([]models.License, error) {
	var licenses []models.License
	if err := s.db.Where("is_active = ?", true).Order("default_price ASC").Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch licenses: %w", err)
	}
	return licenses, nil
}

func (s *BeatService) listBeats(query *gorm.DB, params utils.PaginationParams) ([]models.Beat, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count beats: %w", err)
	}

	allowedSortFields := []string{"created_at", "title", "sales_count", "play_count"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var beats []models.Beat
	if err := query.Find(&beats).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch beats: %w", err)
	}

	return beats, total, nil
}
