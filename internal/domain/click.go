package domain

import "time"

// Device classes produced by the click pipeline.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Unknown is stored when a browser or OS signature does not match.
const Unknown = "Unknown"

// ClickEvent is one immutable redirect traversal. The client IP is never stored;
// only the geo fields derived from it survive.
type ClickEvent struct {
	ID           int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID       int64     `gorm:"column:link_id;not null;index:idx_clicks_link_time,priority:1" json:"link_id"`
	OccurredAt   time.Time `gorm:"column:occurred_at;not null;index:idx_clicks_link_time,priority:2" json:"occurred_at"`
	DeviceClass  string    `gorm:"column:device_class;size:10;not null" json:"device_class"`
	Browser      string    `gorm:"column:browser;size:50;not null" json:"browser"`
	OS           string    `gorm:"column:os;size:50;not null" json:"os"`
	Country      *string   `gorm:"column:country;size:64" json:"country,omitempty"`
	City         *string   `gorm:"column:city;size:100" json:"city,omitempty"`
	ReferrerHost *string   `gorm:"column:referrer_host;size:253" json:"referrer_host,omitempty"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM
func (ClickEvent) TableName() string {
	return "click_events"
}
