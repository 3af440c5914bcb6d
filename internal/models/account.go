package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts raw input into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

type Account struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	Username    string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Role        Role       `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	IsSuperuser bool       `gorm:"not null;default:false" json:"-"`
	IsStaff     bool       `gorm:"not null;default:false" json:"-"`
	FirstName   string     `gorm:"type:varchar(150)" json:"first_name"`
	LastName    string     `gorm:"type:varchar(150)" json:"last_name"`
	Bio         string     `gorm:"type:text" json:"bio"`
	ConfirmedAt *time.Time `json:"-"` // nil until the first confirmation code is exchanged
	LastLogin   *time.Time `json:"-"`
	CodeNonce   uint64     `gorm:"not null;default:0" json:"-"` // bumped on every successful code exchange
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// Confirmed reports whether the account has exchanged a confirmation code at least once.
func (a *Account) Confirmed() bool {
	return a.ConfirmedAt != nil
}
