package models

// DefaultAvatar is served when a user never uploaded an avatar.
const DefaultAvatar = "/static/avatars/default.png"

// Profile holds the public presentation of a user. Exactly one profile exists
// per user; the unique index makes a second row a storage-level violation.
type Profile struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Avatar string `gorm:"size:512" json:"avatar"`
	Bio    string `gorm:"size:500" json:"bio"`
}

// AvatarURL returns the stored avatar path or the default image.
func (p *Profile) AvatarURL() string {
	if p == nil || p.Avatar == "" {
		return DefaultAvatar
	}
	return p.Avatar
}
