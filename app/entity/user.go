package entity

import (
	"database/sql"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	StatusActive = "active"
	StatusLocked = "locked"

	GenderMale   = "male"
	GenderFemale = "female"

	DefaultAvatar = "https://www.pngkey.com/png/full/115-1150420_avatar-png-pic-male-avatar-icon-png.png"
)

type User struct {
	ID           uint64
	Email        string
	DisplayName  string
	PasswordHash string
	PhoneNumber  sql.NullString
	Avatar       string
	Gender       sql.NullString
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsLocked() bool {
	return u.Status == StatusLocked
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserUpdate carries a partial update; nil fields are left untouched.
type UserUpdate struct {
	Email        *string
	DisplayName  *string
	PasswordHash *string
	PhoneNumber  *string
	Avatar       *string
	Gender       *string
}

func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.DisplayName == nil && u.PasswordHash == nil &&
		u.PhoneNumber == nil && u.Avatar == nil && u.Gender == nil
}

type RefreshToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type OneTimeCode struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
