package model

import "time"

const UserTableName = "users"

// Status values a user may pick. Presence comes from the socket, not from
// status; "invisible" only keeps logout from writing "offline".
const (
	StatusOnline    = "online"
	StatusOffline   = "offline"
	StatusAFK       = "afk"
	StatusInvisible = "invisible"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusOffline, StatusAFK, StatusInvisible:
		return true
	}
	return false
}

// User 用户主档
type User struct {
	// —— 基础标识 ——
	ID            string `bson:"_id" json:"_id"`
	Username      string `bson:"username" json:"username"`
	Discriminator string `bson:"discriminator" json:"discriminator"` // 4 位数字标签, unique together with username
	Email         string `bson:"email" json:"email"`
	Password      string `bson:"password" json:"-"` // bcrypt hash, never serialized

	// —— 资料 ——
	Bio            string `bson:"bio" json:"bio"`
	ProfilePicture string `bson:"profilePicture" json:"profilePicture"`

	// —— 状态 ——
	Status    string     `bson:"status" json:"status"`
	IsActive  bool       `bson:"isActive" json:"isActive"`
	LastLogin *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) GetTableName() string { return UserTableName }

// Tag renders "name#1234".
func (u *User) Tag() string { return u.Username + "#" + u.Discriminator }

// Update holds the optional profile fields; nil means unchanged.
type Update struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
	Status         *string
	LastLogin      *time.Time
}

func (up Update) Empty() bool {
	return up.Username == nil && up.Bio == nil && up.ProfilePicture == nil && up.Status == nil && up.LastLogin == nil
}
