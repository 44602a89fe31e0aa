package model

import "time"

// 1オーナーキーにつきカートは1つ。
// owner_key は "user:<id>" か "guest:<uuid>"。
type Cart struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerKey       string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"owner_key"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	LastModifiedAt time.Time `gorm:"not null" json:"last_modified_at"`
}
