package model

// InstanceCredential authorizes API callers for a single channel instance.
type InstanceCredential struct {
	ID         uint64 `gorm:"primaryKey"`
	InstanceID string `gorm:"size:64;not null;index"`
	APIKey     string `gorm:"size:64;not null;index"`
	Status     int    `gorm:"default:1"`
}
