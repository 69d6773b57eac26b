package domain

import "time"

// Profile is a named greeting configuration. The greeting for a name is the
// name followed by the profile's Message.
//
// Fields:
//   - Name: case-folded profile key (primary key).
//   - Message: text appended to the greeted name.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Profile struct {
	Name      string    `json:"name"       gorm:"type:varchar(32);primaryKey"`
	Message   string    `json:"message"    gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }
