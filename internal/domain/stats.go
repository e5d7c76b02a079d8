package domain

import "time"

// GroupCount is one grouped row of a per-dimension click breakdown.
type GroupCount struct {
	Value string `gorm:"column:value" json:"value"`
	Count int64  `gorm:"column:count" json:"count"`
}

// DayCount is the number of clicks on one UTC calendar day.
type DayCount struct {
	Day   time.Time `gorm:"column:day" json:"-"`
	Count int64     `gorm:"column:count" json:"count"`
}

// ClickScope selects the click events an aggregate is computed over:
// either a single link or every link visible to an owner.
type ClickScope struct {
	LinkID  *int64
	OwnerID string
	Teams   []string
	Since   time.Time
	// Until is inclusive; zero means no upper bound.
	Until time.Time
}
