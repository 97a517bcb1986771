package members

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Role is the backend's Spring-style authority name
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusWithdrawn Status = "WITHDRAWN"
)

// Member is the profile snapshot returned by /api/members/me and the admin listings.
type Member struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Status    Status `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"` // backend LocalDateTime, no zone
}

func (m *Member) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}

func (m *Member) IsWithdrawn() bool {
	return m != nil && m.Status == StatusWithdrawn
}

// Matches reports whether keyword occurs, case-insensitively, in the member's
// email, name, role or status. An empty keyword matches everything.
func (m *Member) Matches(keyword string) bool {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return true
	}
	for _, field := range []string{m.Email, m.Name, string(m.Role), string(m.Status)} {
		if strings.Contains(strings.ToLower(field), k) {
			return true
		}
	}
	return false
}

// Filter returns the members matching keyword, preserving order
func Filter(list []Member, keyword string) []Member {
	out := make([]Member, 0, len(list))
	for i := range list {
		if list[i].Matches(keyword) {
			out = append(out, list[i])
		}
	}
	return out
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains a letter and a number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		if unicode.IsLetter(char) {
			hasLetter = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
