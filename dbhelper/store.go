package dbhelper

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"closetapi/models"
)

var ErrNotFound = errors.New("record not found")

// OutfitStore persists profiles, their wardrobes and the daily outfits.
type OutfitStore interface {
	SaveProfile(ctx context.Context, profile *models.StyleProfile) error
	GetProfile(ctx context.Context, id uint) (*models.StyleProfile, error)
	ListDailyProfileIDs(ctx context.Context) ([]uint, error)
	SaveWardrobeRecord(ctx context.Context, record *models.WardrobeRecord) error
	ListWardrobe(ctx context.Context, profileID uint) ([]models.WardrobeRecord, error)
	SaveDailyOutfit(ctx context.Context, outfit *models.DailyOutfit) error
	GetDailyOutfit(ctx context.Context, profileID uint, date string) (*models.DailyOutfit, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// SaveProfile inserts or fully updates the profile with profile.ID.
func (s *GormStore) SaveProfile(ctx context.Context, profile *models.StyleProfile) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at", "name", "style_tags", "location_lat", "location_lon", "push_token", "platform", "daily_outfit_alert"}),
	}).Create(profile).Error
}

func (s *GormStore) GetProfile(ctx context.Context, id uint) (*models.StyleProfile, error) {
	var profile models.StyleProfile
	if err := s.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// ListDailyProfileIDs returns the profiles that have at least one wardrobe item.
func (s *GormStore) ListDailyProfileIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.StyleProfile{}).
		Where("EXISTS (SELECT 1 FROM wardrobe_records w WHERE w.profile_id = style_profiles.id)").
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (s *GormStore) SaveWardrobeRecord(ctx context.Context, record *models.WardrobeRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at", "image_url", "tag"}),
	}).Create(record).Error
}

func (s *GormStore) ListWardrobe(ctx context.Context, profileID uint) ([]models.WardrobeRecord, error) {
	var records []models.WardrobeRecord
	err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Order("id").Find(&records).Error
	return records, err
}

// SaveDailyOutfit keeps one row per profile and date; a rerun overwrites it.
func (s *GormStore) SaveDailyOutfit(ctx context.Context, outfit *models.DailyOutfit) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}, {Name: "outfit_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at", "items", "name", "vibe", "weather", "status", "error_code", "error_message", "raw_response",
		}),
	}).Create(outfit).Error
}

func (s *GormStore) GetDailyOutfit(ctx context.Context, profileID uint, date string) (*models.DailyOutfit, error) {
	var outfit models.DailyOutfit
	err := s.db.WithContext(ctx).Where("profile_id = ? AND outfit_date = ?", profileID, date).First(&outfit).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &outfit, nil
}
