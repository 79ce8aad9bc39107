package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	MaxNameLength     = 50
	MinPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email" gorm:"unique;not null"`
	Role      string    `json:"role" gorm:"not null;default:'user'"`
	Password  string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// ValidateUser normalizes the user in place and reports the first schema
// violation. The Password field is expected to hold the plaintext candidate
// here; hashing happens in the auth service after validation passes.
func ValidateUser(u *User) error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return errors.New("please add a name")
	}
	if len(u.Name) > MaxNameLength {
		return fmt.Errorf("name can not be more than %d characters", MaxNameLength)
	}

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return errors.New("please add an email")
	}
	if !emailPattern.MatchString(u.Email) {
		return errors.New("please add a valid email")
	}

	if u.Role == "" {
		u.Role = RoleUser
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("invalid role %q", u.Role)
	}

	if len(u.Password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
