package test

import (
	"context"
	"sort"
	"sync"
	"time"

	"closetapi/dbhelper"
	"closetapi/models"
)

// MemoryStore is an in-memory dbhelper.OutfitStore.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[uint]models.StyleProfile
	wardrobe map[uint][]models.WardrobeRecord
	daily    map[uint]map[string]models.DailyOutfit
	nextID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: map[uint]models.StyleProfile{},
		wardrobe: map[uint][]models.WardrobeRecord{},
		daily:    map[uint]map[string]models.DailyOutfit{},
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) SaveProfile(ctx context.Context, profile *models.StyleProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.profiles[profile.ID]; ok {
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, id uint) (*models.StyleProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, dbhelper.ErrNotFound
	}
	return &profile, nil
}

func (s *MemoryStore) ListDailyProfileIDs(ctx context.Context) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []uint{}
	for id := range s.profiles {
		if len(s.wardrobe[id]) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) SaveWardrobeRecord(ctx context.Context, record *models.WardrobeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.wardrobe[record.ProfileID]
	for i := range records {
		if records[i].ItemID == record.ItemID {
			record.ID = records[i].ID
			record.CreatedAt = records[i].CreatedAt
			record.UpdatedAt = time.Now()
			records[i] = *record
			return nil
		}
	}
	record.ID = s.id()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	s.wardrobe[record.ProfileID] = append(records, *record)
	return nil
}

func (s *MemoryStore) ListWardrobe(ctx context.Context, profileID uint) ([]models.WardrobeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WardrobeRecord(nil), s.wardrobe[profileID]...), nil
}

func (s *MemoryStore) SaveDailyOutfit(ctx context.Context, outfit *models.DailyOutfit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate := s.daily[outfit.ProfileID]
	if byDate == nil {
		byDate = map[string]models.DailyOutfit{}
		s.daily[outfit.ProfileID] = byDate
	}
	if existing, ok := byDate[outfit.OutfitDate]; ok {
		outfit.ID = existing.ID
		outfit.CreatedAt = existing.CreatedAt
	} else {
		outfit.ID = s.id()
		outfit.CreatedAt = time.Now()
	}
	outfit.UpdatedAt = time.Now()
	byDate[outfit.OutfitDate] = *outfit
	return nil
}

func (s *MemoryStore) GetDailyOutfit(ctx context.Context, profileID uint, date string) (*models.DailyOutfit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outfit, ok := s.daily[profileID][date]
	if !ok {
		return nil, dbhelper.ErrNotFound
	}
	return &outfit, nil
}

// DailyOutfitCount counts stored daily outfits over all profiles.
func (s *MemoryStore) DailyOutfitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, byDate := range s.daily {
		n += len(byDate)
	}
	return n
}

var _ dbhelper.OutfitStore = (*MemoryStore)(nil)
