package models

import "time"

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StyleProfile is a user that receives a generated outfit every day.
type StyleProfile struct {
	JsonModel
	Name        string   `json:"name"`
	StyleTags   []string `gorm:"serializer:json;type:jsonb" json:"style_tags"`
	LocationLat *float64 `json:"location_lat"`
	LocationLon *float64 `json:"location_lon"`
	// device token for daily outfit notifications
	PushToken        *string  `json:"-"`
	Platform         Platform `json:"platform"`
	DailyOutfitAlert bool     `gorm:"default:true" json:"daily_outfit_alert"`
}

// Vibe is the first style tag, used as the daily outfit vibe.
func (p StyleProfile) Vibe() string {
	if len(p.StyleTags) == 0 {
		return ""
	}
	return p.StyleTags[0]
}

type WardrobeRecord struct {
	JsonModel
	ProfileID uint       `gorm:"uniqueIndex:idx_wardrobe_profile_item" json:"-"`
	ItemID    string     `gorm:"uniqueIndex:idx_wardrobe_profile_item" json:"id"`
	ImageURL  *string    `json:"image_url"`
	Tag       GarmentTag `gorm:"serializer:json;type:jsonb" json:"tag"`
}

func (r WardrobeRecord) WardrobeItem() WardrobeItem {
	return WardrobeItemFromTag(r.ItemID, r.Tag)
}

const (
	DailyOutfitCompleted = "completed"
	DailyOutfitFailed    = "failed"
)

// DailyOutfit is at most one generated outfit per profile per date.
type DailyOutfit struct {
	JsonModel
	ProfileID    uint            `gorm:"uniqueIndex:idx_daily_outfit_profile_date" json:"profile_id"`
	OutfitDate   string          `gorm:"uniqueIndex:idx_daily_outfit_profile_date" json:"outfit_date"` // YYYY-MM-DD
	Items        OutfitSelection `gorm:"serializer:json;type:jsonb" json:"items"`
	Name         string          `json:"name"`
	Vibe         string          `json:"vibe"`
	Weather      Weather         `gorm:"serializer:json;type:jsonb" json:"weather"`
	Status       string          `json:"status"`
	ErrorCode    *string         `json:"error_code,omitempty"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	RawResponse  *string         `gorm:"type:text" json:"-"`
}

type Weather struct {
	Temperature float64 `json:"temperature"` // fahrenheit
	Description string  `json:"description"`
}
