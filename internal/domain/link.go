package domain

import "time"

// UTM holds the attribution tags appended to a destination URL on redirect.
type UTM struct {
	Source   string `gorm:"column:source;size:255" json:"utm_source,omitempty"`
	Medium   string `gorm:"column:medium;size:255" json:"utm_medium,omitempty"`
	Campaign string `gorm:"column:campaign;size:255" json:"utm_campaign,omitempty"`
	Term     string `gorm:"column:term;size:255" json:"utm_term,omitempty"`
	Content  string `gorm:"column:content;size:255" json:"utm_content,omitempty"`
}

// Link is a tagged destination, optionally reachable through a short code.
type Link struct {
	ID             int64     `gorm:"primaryKey;column:id" json:"id"`
	OwnerID        string    `gorm:"column:owner_id;size:64;not null;index:idx_links_owner_team,priority:1" json:"owner_id"`
	TeamID         *string   `gorm:"column:team_id;size:64;index:idx_links_owner_team,priority:2;index:idx_links_team" json:"team_id,omitempty"`
	DestinationURL string    `gorm:"column:destination_url;type:text;not null" json:"destination_url"`
	UTM            UTM       `gorm:"embedded;embeddedPrefix:utm_" json:"utm"`
	ShortCode      *string   `gorm:"column:short_code;size:32" json:"short_code,omitempty"`
	BoundDomainID  *int64    `gorm:"column:bound_domain_id;index" json:"bound_domain_id,omitempty"`
	Clicks         int64     `gorm:"column:clicks;not null;default:0" json:"clicks"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	BoundDomain *Domain `gorm:"foreignKey:BoundDomainID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for GORM
func (Link) TableName() string {
	return "links"
}

// IsShort reports whether the link participates in redirect resolution.
func (l *Link) IsShort() bool {
	return l.ShortCode != nil && *l.ShortCode != ""
}

// Code returns the short code or an empty string for UTM-only links.
func (l *Link) Code() string {
	if l.ShortCode == nil {
		return ""
	}
	return *l.ShortCode
}

// IsTeamScoped reports whether the link belongs to a team rather than a single account.
func (l *Link) IsTeamScoped() bool {
	return l.TeamID != nil && *l.TeamID != ""
}

// ManageableBy reports whether the account owns the link or shares its team.
func (l *Link) ManageableBy(acc Account) bool {
	if l.OwnerID == acc.ID {
		return true
	}
	return l.IsTeamScoped() && acc.MemberOf(*l.TeamID)
}
