package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleInfluencer = "influencer"
	RoleBrand      = "brand"
	RoleAdmin      = "admin"

	DefaultAvatar = "https://via.placeholder.com/150"
)

type SocialLinks struct {
	Instagram string `gorm:"size:255;default:''" json:"instagram"`
	Twitter   string `gorm:"size:255;default:''" json:"twitter"`
	YouTube   string `gorm:"column:youtube;size:255;default:''" json:"youtube"`
	TikTok    string `gorm:"column:tiktok;size:255;default:''" json:"tiktok"`
}

// User is the account and profile record shared by both sides of the marketplace.
type User struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string                      `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email       string                      `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password    string                      `gorm:"not null" json:"-"`
	Bio         string                      `gorm:"type:text" json:"bio"`
	Avatar      string                      `gorm:"size:512" json:"avatar"`
	Role        string                      `gorm:"size:20;default:'influencer'" json:"role"`
	SocialLinks SocialLinks                 `gorm:"embedded;embeddedPrefix:social_" json:"socialLinks"`
	Interests   datatypes.JSONSlice[string] `json:"interests"`
	Location    string                      `gorm:"size:255" json:"location"`
	Followers   int                         `gorm:"default:0" json:"followers"`
	Following   int                         `gorm:"default:0" json:"following"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.ApplyDefaults()
	return nil
}

// ApplyDefaults fills the fields a fresh registration leaves empty.
func (u *User) ApplyDefaults() {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleInfluencer
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar
	}
	if u.Interests == nil {
		u.Interests = datatypes.JSONSlice[string]{}
	}
}

// Profile holds the fields a user may edit about themselves.
type Profile struct {
	Bio         string
	Avatar      string
	Role        string
	Location    string
	Interests   []string
	SocialLinks SocialLinks
}
