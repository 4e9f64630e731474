package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a build agent operator. Agents authenticate with username plus an API token whose
// bcrypt hash is stored here.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"column:username;size:150;not null;uniqueIndex:uk_user_username" json:"username"`
	Email     string    `gorm:"column:email;size:250" json:"email,omitempty"`
	TokenHash string    `gorm:"column:token_hash;not null" json:"-"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
