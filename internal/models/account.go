package models

import "time"

// Platform identifiers for connected social accounts.
const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformLinkedIn  = "linkedin"
)

// AccountModel stores a client's connected social account and its
// API credentials.
type AccountModel struct {
	Base
	ClientID          string       `json:"client_id"           gorm:"index;not null"`
	Client            *ClientModel `json:"client,omitempty"  gorm:"foreignKey:ClientID"`
	Platform          string       `json:"platform"            gorm:"index;not null"`
	AccountName       string       `json:"account_name"`
	PlatformAccountID string       `json:"platform_account_id"`
	AccessToken       string       `json:"-"                   gorm:"type:text"`
	RefreshToken      string       `json:"-"                   gorm:"type:text"`
	TokenExpiresAt    *time.Time   `json:"token_expires_at"`
	Active            bool         `json:"active"              gorm:"default:true"`
}

func (AccountModel) TableName() string { return "accounts" }
