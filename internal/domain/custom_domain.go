package domain

import "time"

// Domain is a caller-owned hostname that can serve short links once verified.
type Domain struct {
	ID                int64      `gorm:"primaryKey;column:id" json:"id"`
	OwnerID           string     `gorm:"column:owner_id;size:64;not null;index" json:"owner_id"`
	Hostname          string     `gorm:"column:hostname;size:253;not null;uniqueIndex:uk_domains_hostname" json:"hostname"`
	VerificationToken string     `gorm:"column:verification_token;size:128;not null" json:"verification_token"`
	TokenGeneration   int        `gorm:"column:token_generation;not null;default:0" json:"-"`
	Verified          bool       `gorm:"column:verified;not null;default:false" json:"verified"`
	VerifiedAt        *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM
func (Domain) TableName() string {
	return "domains"
}
